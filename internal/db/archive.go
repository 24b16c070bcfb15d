package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"elite-starscan/internal/journal"
)

// ArchivedSystem summarises the archived lines of one system.
type ArchivedSystem struct {
	Address int64  `json:"address"`
	Name    string `json:"name"`
	Events  int    `json:"events"`
	First   string `json:"first"`
	Last    string `json:"last"`
}

// Insert archives decoded lines. A line's own Source wins over source.
// Lines already present are skipped, so re-ingesting a journal is harmless.
// Returns how many were new.
func (d *DB) Insert(ctx context.Context, source string, lines []journal.Line) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO journal_events (source, timestamp, event, system_address, system_name, raw)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, l := range lines {
		ref := journal.SystemRef{}
		kind := ""
		if l.Event != nil {
			ref = l.Event.System()
			kind = l.Event.Kind()
		}
		src := source
		if l.Source != "" {
			src = l.Source
		}
		res, err := stmt.ExecContext(ctx, src, stamp(l.Raw), kind, ref.Address, ref.Name, string(l.Raw))
		if err != nil {
			return added, fmt.Errorf("insert %s line: %w", kind, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return added, nil
}

// stamp pulls the timestamp of the first journal line in raw.
func stamp(raw []byte) string {
	first, _, _ := bytes.Cut(raw, []byte{'\n'})
	var h journal.Header
	if err := json.Unmarshal(first, &h); err != nil || h.Timestamp.IsZero() {
		return ""
	}
	return h.Timestamp.UTC().Format(time.RFC3339)
}

// Count returns the number of archived lines.
func (d *DB) Count() int {
	n := 0
	d.sql.QueryRow("SELECT COUNT(*) FROM journal_events").Scan(&n)
	return n
}

// Replay calls fn with every archived raw line in insertion order. A zero
// address replays the whole archive; otherwise only that system's lines,
// together with the location lines that give them context.
func (d *DB) Replay(ctx context.Context, address int64, fn func(raw []byte) error) error {
	var (
		rows *sql.Rows
		err  error
	)
	if address == 0 {
		rows, err = d.sql.QueryContext(ctx, "SELECT raw FROM journal_events ORDER BY id")
	} else {
		rows, err = d.sql.QueryContext(ctx, "SELECT raw FROM journal_events WHERE system_address = ? ORDER BY id", address)
	}
	if err != nil {
		return fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scan archive row: %w", err)
		}
		if err := fn([]byte(raw)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Lines decodes the archive back into journal lines, in the order they were
// first read. See Replay for the meaning of address.
func (d *DB) Lines(ctx context.Context, address int64) ([]journal.Line, error) {
	r := journal.NewReader()
	var out []journal.Line
	err := d.Replay(ctx, address, func(raw []byte) error {
		for _, part := range bytes.Split(raw, []byte{'\n'}) {
			lines, err := r.Feed(part)
			if err != nil {
				return fmt.Errorf("decode archived line: %w", err)
			}
			out = append(out, lines...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append(out, r.Flush()...), nil
}

// Systems lists archived systems, busiest first.
func (d *DB) Systems(ctx context.Context) ([]ArchivedSystem, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT system_address, MAX(system_name), COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM journal_events
		WHERE system_address != 0
		GROUP BY system_address
		ORDER BY COUNT(*) DESC, system_address`)
	if err != nil {
		return nil, fmt.Errorf("query systems: %w", err)
	}
	defer rows.Close()

	var out []ArchivedSystem
	for rows.Next() {
		var s ArchivedSystem
		if err := rows.Scan(&s.Address, &s.Name, &s.Events, &s.First, &s.Last); err != nil {
			return nil, fmt.Errorf("scan system row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SourceOffset returns how far into path the watcher had read, or 0.
func (d *DB) SourceOffset(path string) int64 {
	var off int64
	d.sql.QueryRow("SELECT read_offset FROM journal_sources WHERE path = ?", path).Scan(&off)
	return off
}

// SetSourceOffset records how far into path has been archived.
func (d *DB) SetSourceOffset(path string, offset int64) error {
	_, err := d.sql.Exec(`
		INSERT INTO journal_sources (path, read_offset, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET read_offset = excluded.read_offset, updated_at = excluded.updated_at`,
		path, offset, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save source offset: %w", err)
	}
	return nil
}
