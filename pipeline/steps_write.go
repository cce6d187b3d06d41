package pipeline

import (
	"context"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/writer"
)

// writeJSONLStep appends records to a JSONL sink.
type writeJSONLStep struct {
	name     string
	path     string
	template string
	field    string

	rt *runtime
	w  *writer.JSONL
}

// WriteJSONL appends one line per record to path, rendering the template
// (name or literal) against the record. The sink is opened at build time;
// write failures abort the run. Only records that cleared every prior step
// reach the sink.
func WriteJSONL(name, path, template string) Step {
	return &writeJSONLStep{name: name, path: path, template: template}
}

// WriteJSONLField appends the named column's value, one line per record.
// A non-string value is written as its compact JSON form.
func WriteJSONLField(name, path, field string) Step {
	return &writeJSONLStep{name: name, path: path, field: field}
}

func (s *writeJSONLStep) Name() string { return s.name }

func (s *writeJSONLStep) bind(rt *runtime) error {
	if s.template == "" && s.field == "" {
		return fmt.Errorf("jsonl writer needs a template or a field")
	}
	w, err := writer.NewJSONL(s.path)
	if err != nil {
		return err
	}
	s.rt = rt
	s.w = w
	rt.closers = append(rt.closers, w)
	return nil
}

func (s *writeJSONLStep) Apply(ctx context.Context, c *kiln.Context) error {
	var record string
	if s.field != "" {
		v, ok := c.GetString(s.field)
		if !ok {
			return fmt.Errorf("column %q: %w", s.field, kiln.ErrMissingColumn)
		}
		record = v
	} else {
		rendered, err := s.rt.templates.Render(s.template, c.Data())
		if err != nil {
			return err
		}
		record = rendered
	}
	if err := s.w.Append(ctx, record); err != nil {
		return infra(err)
	}
	return nil
}

// writeCSVStep appends column projections to a CSV sink.
type writeCSVStep struct {
	name      string
	path      string
	columns   []string
	delimiter rune

	w *writer.CSV
}

// WriteCSV appends the named columns of each record to path with the given
// delimiter (zero means comma). A header row is written when the file
// starts empty; write failures abort the run.
func WriteCSV(name, path string, columns []string, delimiter rune) Step {
	return &writeCSVStep{name: name, path: path, columns: columns, delimiter: delimiter}
}

func (s *writeCSVStep) Name() string { return s.name }

func (s *writeCSVStep) bind(rt *runtime) error {
	w, err := writer.NewCSV(s.path, s.columns, s.delimiter)
	if err != nil {
		return err
	}
	s.w = w
	rt.closers = append(rt.closers, w)
	return nil
}

func (s *writeCSVStep) Apply(ctx context.Context, c *kiln.Context) error {
	fields := make([]string, len(s.columns))
	for i, col := range s.columns {
		v, ok := c.GetString(col)
		if !ok {
			return fmt.Errorf("column %q: %w", col, kiln.ErrMissingColumn)
		}
		fields[i] = v
	}
	if err := s.w.AppendRow(ctx, fields); err != nil {
		return infra(err)
	}
	return nil
}
