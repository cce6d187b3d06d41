package writer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSV appends column-projected records to a CSV file. A header row is
// written when the file is created empty.
type CSV struct {
	mu      sync.Mutex
	f       *os.File
	w       *csv.Writer
	path    string
	columns []string
}

// NewCSV opens (or creates) path for appending with the given column
// projection and field delimiter. A zero delimiter means comma.
func NewCSV(path string, columns []string, delimiter rune) (*CSV, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("csv writer needs at least one column")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if delimiter != 0 {
		w.Comma = delimiter
	}

	c := &CSV{f: f, w: w, path: path, columns: columns}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := w.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header %s: %w", path, err)
		}
	}
	return c, nil
}

// Columns returns the projected column names in output order.
func (c *CSV) Columns() []string { return c.columns }

// AppendRow writes one row. Fields must align with Columns.
func (c *CSV) AppendRow(_ context.Context, fields []string) error {
	if len(fields) != len(c.columns) {
		return fmt.Errorf("csv row has %d fields, want %d", len(fields), len(c.columns))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Write(fields); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return fmt.Errorf("flush %s: %w", c.path, err)
	}
	return c.f.Close()
}
