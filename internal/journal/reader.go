package journal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"elite-starscan/internal/logger"
)

// Line is a decoded journal line together with its raw bytes, so callers
// can archive exactly what was read.
type Line struct {
	Raw    []byte
	Event  Event
	Source string // file the line was read from, when known
}

// Reader turns journal lines into events. It remembers the commander's
// location from FSDJump/Location/CarrierJump and stamps it on scans, and it
// folds consecutive FSSSignalDiscovered lines into one SignalList.
// A Reader is not safe for concurrent use.
type Reader struct {
	location SystemRef
	batch    *SignalList
	batchRaw [][]byte
}

// NewReader returns a Reader with no known location.
func NewReader() *Reader { return &Reader{} }

// Location returns the last system the commander was seen in.
func (r *Reader) Location() SystemRef { return r.location }

// Feed decodes one line and returns the events that are complete after it.
// A pending signal batch is released as soon as a line of any other kind
// arrives; call Flush at end of input.
func (r *Reader) Feed(raw []byte) ([]Line, error) {
	ev, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return r.Flush(), nil
	}

	if sl, ok := ev.(*SignalList); ok {
		if r.batch != nil && r.batch.SystemAddress == sl.SystemAddress {
			r.batch.Signals = append(r.batch.Signals, sl.Signals...)
			r.batchRaw = append(r.batchRaw, raw)
			return nil, nil
		}
		out := r.Flush()
		if sl.SystemAddress == r.location.Address {
			sl.SystemName = r.location.Name
		}
		r.batch = sl
		r.batchRaw = [][]byte{raw}
		return out, nil
	}

	out := r.Flush()
	switch e := ev.(type) {
	case *Location:
		r.location = e.System()
	case *Scan:
		e.Location = r.location
	}
	return append(out, Line{Raw: raw, Event: ev}), nil
}

// Flush releases a buffered signal batch, if any.
func (r *Reader) Flush() []Line {
	if r.batch == nil {
		return nil
	}
	raw := joinLines(r.batchRaw)
	out := []Line{{Raw: raw, Event: r.batch}}
	r.batch = nil
	r.batchRaw = nil
	return out
}

// ReadAll decodes every line of rd. Malformed lines are skipped with a warning.
func (r *Reader) ReadAll(rd io.Reader) ([]Line, error) {
	var out []Line
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := append([]byte(nil), line...)
		lines, err := r.Feed(raw)
		if err != nil {
			logger.Warn("JOURNAL", fmt.Sprintf("line %d: %v", n, err))
			continue
		}
		out = append(out, lines...)
	}
	out = append(out, r.Flush()...)
	return out, scanner.Err()
}

// ReadFile decodes one journal file with a fresh Reader.
func ReadFile(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	lines, err := NewReader().ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i := range lines {
		lines[i].Source = path
	}
	return lines, nil
}

// ReadFiles decodes several journal files concurrently and returns their
// lines concatenated in the order the paths were given. Each file starts
// with an unknown location, as the game writes a Location line at the top
// of every journal.
func ReadFiles(ctx context.Context, paths []string, workers int) ([]Line, error) {
	results := make([][]Line, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lines, err := ReadFile(p)
			if err != nil {
				return err
			}
			results[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Line
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func joinLines(lines [][]byte) []byte {
	var out []byte
	for i, l := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, l...)
	}
	return out
}
