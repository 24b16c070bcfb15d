package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"elite-starscan/internal/logger"
)

// IsJournalFile reports whether name looks like a game journal file,
// e.g. "Journal.2024-03-01T201502.01.log".
func IsJournalFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, "Journal.") && strings.HasSuffix(base, ".log")
}

// JournalFiles lists the journal files of dir, oldest first. The game's
// timestamped names sort chronologically.
func JournalFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && IsJournalFile(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Tailer follows a journal directory and emits lines appended to any
// journal file, in the order they were written to each file.
type Tailer struct {
	Dir   string
	Lines <-chan Line

	lines   chan Line
	done    chan struct{}
	watcher *fsnotify.Watcher
	reader  *Reader
	offsets map[string]int64
	partial map[string][]byte
	initial []string
}

// NewTailer creates a tailer for dir. Call Start to begin watching.
func NewTailer(dir string) (*Tailer, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Line, 64)
	return &Tailer{
		Dir:     dir,
		Lines:   ch,
		lines:   ch,
		done:    make(chan struct{}),
		watcher: fw,
		reader:  NewReader(),
		offsets: make(map[string]int64),
		partial: make(map[string][]byte),
	}, nil
}

// Start begins watching. Existing journal content is skipped unless
// fromStart is set, in which case the newest journal is read from its
// first line so the current session's location is known. Seeded files are
// caught up from their seeded offset.
func (t *Tailer) Start(fromStart bool) error {
	files, err := JournalFiles(t.Dir)
	if err != nil {
		return err
	}
	for i, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			continue
		}
		if off, seeded := t.offsets[f]; seeded {
			if off < fi.Size() {
				t.initial = append(t.initial, f)
			}
			continue
		}
		if fromStart && i == len(files)-1 {
			t.initial = append(t.initial, f)
			continue
		}
		t.offsets[f] = fi.Size()
	}
	if err := t.watcher.Add(t.Dir); err != nil {
		return err
	}
	go t.loop()
	return nil
}

// Seed makes Start resume path at off instead of skipping or rereading it.
func (t *Tailer) Seed(path string, off int64) {
	t.offsets[path] = off
}

// Offsets returns, per file, the end of the last complete line emitted.
// Only call it after Stop.
func (t *Tailer) Offsets() map[string]int64 {
	out := make(map[string]int64, len(t.offsets))
	for f, off := range t.offsets {
		out[f] = off - int64(len(t.partial[f]))
	}
	return out
}

// Stop closes the watcher, releases buffered signals and closes Lines.
func (t *Tailer) Stop() {
	t.watcher.Close()
	<-t.done
	for _, l := range t.reader.Flush() {
		t.lines <- l
	}
	close(t.lines)
}

func (t *Tailer) loop() {
	defer close(t.done)

	const debounce = 100 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for _, f := range t.initial {
		t.readNew(f)
	}
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				for file := range pending {
					t.readNew(file)
				}
				return
			}
			if !IsJournalFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, at := range pending {
				if now.Sub(at) >= debounce {
					t.readNew(file)
					delete(pending, file)
				}
			}
			// Signal batches end when the next line arrives; a quiet
			// journal releases them here.
			if len(pending) == 0 {
				for _, l := range t.reader.Flush() {
					t.lines <- l
				}
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("TAIL", err.Error())
		}
	}
}

// readNew reads the complete lines appended to path since the last read.
func (t *Tailer) readNew(path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("TAIL", fmt.Sprintf("open %s: %v", filepath.Base(path), err))
		return
	}
	defer f.Close()

	off := t.offsets[path]
	if fi, err := f.Stat(); err == nil && fi.Size() < off {
		off = 0
		delete(t.partial, path)
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		logger.Warn("TAIL", fmt.Sprintf("seek %s: %v", filepath.Base(path), err))
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		logger.Warn("TAIL", fmt.Sprintf("read %s: %v", filepath.Base(path), err))
		return
	}
	t.offsets[path] = off + int64(len(data))

	buf := append(t.partial[path], data...)
	last := bytes.LastIndexByte(buf, '\n')
	if last < 0 {
		t.partial[path] = buf
		return
	}
	t.partial[path] = append([]byte(nil), buf[last+1:]...)

	for _, raw := range bytes.Split(buf[:last], []byte{'\n'}) {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		lines, err := t.reader.Feed(append([]byte(nil), raw...))
		if err != nil {
			logger.Warn("TAIL", fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		for _, l := range lines {
			l.Source = path
			t.lines <- l
		}
	}
}
