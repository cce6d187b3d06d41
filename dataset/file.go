package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	kiln "github.com/spetersoncode/kiln"
)

// maxLineBytes bounds one JSONL record. Generation outputs can be large.
const maxLineBytes = 16 << 20

// FromJSONL loads a dataset from a JSON-lines file, one object per line.
// Blank lines are skipped; a malformed line fails the load with its line
// number.
func FromJSONL(name, path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var rows []kiln.Row
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var row kiln.Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return FromRows(name, rows), nil
}

// FromJSON loads a dataset from a file holding a JSON array of objects.
func FromJSON(name, path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var rows []kiln.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return FromRows(name, rows), nil
}

// FromCSV loads a dataset from a delimited file. The first row is the
// header; every cell is typed by parse order: int, float, bool, then string.
// A zero delimiter means comma.
func FromCSV(name, path string, delimiter rune) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if delimiter != 0 {
		r.Comma = delimiter
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, kiln.ErrEmptyInput)
	}

	header := records[0]
	rows := make([]kiln.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(kiln.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = typeCell(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return FromRowsOrdered(name, rows, header), nil
}

func typeCell(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return fl
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
