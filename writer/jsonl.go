package writer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// JSONL appends one record per line to a .jsonl file. Records are written
// in append mode, so interrupted runs can resume into the same file.
type JSONL struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

// NewJSONL opens (or creates) path for appending. Parent directories are
// created as needed.
func NewJSONL(path string) (*JSONL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &JSONL{f: f, w: bufio.NewWriter(f), path: path}, nil
}

// Append writes record as one line. Any newline in the record, literal or
// escaped, is normalized to the two-character escape sequence so the line
// structure of the file survives arbitrary content.
func (j *JSONL) Append(_ context.Context, record string) error {
	record = strings.ReplaceAll(record, "\\n", "\n")
	record = strings.ReplaceAll(record, "\n", "\\n")

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.WriteString(record); err != nil {
		return fmt.Errorf("write %s: %w", j.path, err)
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write %s: %w", j.path, err)
	}
	return nil
}

// Path returns the output file path.
func (j *JSONL) Path() string { return j.path }

// Close flushes buffered lines and closes the file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		j.f.Close()
		return fmt.Errorf("flush %s: %w", j.path, err)
	}
	return j.f.Close()
}
