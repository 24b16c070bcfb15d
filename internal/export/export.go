// Package export writes system body trees to YAML and CSV files.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"elite-starscan/internal/starscan"
)

// BodyRow is one body flattened for CSV output.
type BodyRow struct {
	System        string  `csv:"system"`
	Address       int64   `csv:"address"`
	BodyID        int     `csv:"body_id"`
	Name          string  `csv:"name"`
	CanonicalName string  `csv:"canonical_name"`
	Class         string  `csv:"class"`
	ParentID      int     `csv:"parent_id"`
	Parent        string  `csv:"parent"`
	Depth         int     `csv:"depth"`
	Type          string  `csv:"type"`
	DistanceLS    float64 `csv:"distance_ls"`
	Landable      bool    `csv:"landable"`
	Mapped        bool    `csv:"mapped"`
	Signals       int     `csv:"signals"`
	Organics      int     `csv:"organics"`
	Scanned       bool    `csv:"scanned"`
}

// Rows flattens sys into one row per body, in tree order.
func Rows(sys *starscan.SystemNode) []BodyRow {
	bodies := sys.Bodies()
	byHandle := make(map[starscan.Handle]*starscan.BodyNode, len(bodies))
	for i := range bodies {
		byHandle[bodies[i].Handle()] = &bodies[i]
	}

	name, addr := sys.Name(), sys.Address()
	rows := make([]BodyRow, 0, len(bodies))
	for i := range bodies {
		b := &bodies[i]
		row := BodyRow{
			System:        name,
			Address:       addr,
			BodyID:        b.BodyID,
			Name:          b.OwnName,
			CanonicalName: b.CanonicalName,
			Class:         b.Class.String(),
			ParentID:      -1,
			Mapped:        b.Mapped,
			Organics:      len(b.Organics),
			Scanned:       b.Scan != nil,
		}
		if p, ok := byHandle[b.Parent()]; ok {
			row.ParentID = p.BodyID
			row.Parent = p.OwnName
		}
		for p, ok := byHandle[b.Parent()]; ok; p, ok = byHandle[p.Parent()] {
			row.Depth++
		}
		if sc := b.Scan; sc != nil {
			row.DistanceLS = sc.DistanceFromArrivalLS
			row.Landable = sc.Landable
			row.Type = sc.PlanetClass
			if sc.StarType != "" {
				row.Type = sc.StarType
			}
		}
		for _, sig := range b.Signals {
			row.Signals += sig.Count
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the rows of every given system with one header line.
func WriteCSV(w io.Writer, systems ...*starscan.SystemNode) error {
	var rows []BodyRow
	for _, s := range systems {
		rows = append(rows, Rows(s)...)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing bodies csv: %w", err)
	}
	return nil
}

// WriteYAML writes the snapshot of sys as a YAML document.
func WriteYAML(w io.Writer, sys *starscan.SystemNode) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sys.Snapshot()); err != nil {
		return fmt.Errorf("writing %s yaml: %w", sys.Name(), err)
	}
	return enc.Close()
}

// WriteDir writes <system>.yaml for every system plus a combined bodies.csv
// and summary.yaml into dir. Returns the files written.
func WriteDir(dir string, systems []*starscan.SystemNode) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	var written []string
	for _, s := range systems {
		path := filepath.Join(dir, FileName(s)+".yaml")
		if err := writeFile(path, func(w io.Writer) error { return WriteYAML(w, s) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	csvPath := filepath.Join(dir, "bodies.csv")
	if err := writeFile(csvPath, func(w io.Writer) error { return WriteCSV(w, systems...) }); err != nil {
		return written, err
	}
	written = append(written, csvPath)

	sumPath := filepath.Join(dir, "summary.yaml")
	err := writeFile(sumPath, func(w io.Writer) error {
		sums := make([]Summary, 0, len(systems))
		for _, s := range systems {
			sums = append(sums, Summarize(s))
		}
		return yaml.NewEncoder(w).Encode(sums)
	})
	if err != nil {
		return written, err
	}
	return append(written, sumPath), nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FileName turns a system name into a safe file stem.
func FileName(s *starscan.SystemNode) string {
	name := s.Name()
	if name == "" {
		name = fmt.Sprintf("%d", s.Address())
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
}
