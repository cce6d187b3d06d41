package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"

	kiln "github.com/spetersoncode/kiln"
)

// sampleStep draws rows from a dataset into a list column.
type sampleStep struct {
	name    string
	dataset string
	size    int
	output  string

	ds kiln.Dataset
}

// Sample draws size rows uniformly at random from the named dataset and
// binds them as a list under output. Each invocation draws independently.
func Sample(name, dataset string, size int, output string) Step {
	return &sampleStep{name: name, dataset: dataset, size: size, output: output}
}

func (s *sampleStep) Name() string { return s.name }

func (s *sampleStep) bind(rt *runtime) error {
	if s.size <= 0 {
		return fmt.Errorf("sample size must be > 0, got %d", s.size)
	}
	ds, err := rt.dataset(s.dataset)
	if err != nil {
		return err
	}
	s.ds = ds
	return nil
}

func (s *sampleStep) Apply(_ context.Context, c *kiln.Context) error {
	c.Set(s.output, s.ds.Sample(s.size))
	return nil
}

// readStep binds a whole dataset's rows under a column.
type readStep struct {
	name    string
	dataset string
	output  string

	ds kiln.Dataset
}

// Read binds all rows of the named dataset as a list under output.
func Read(name, dataset, output string) Step {
	return &readStep{name: name, dataset: dataset, output: output}
}

func (s *readStep) Name() string { return s.name }

func (s *readStep) bind(rt *runtime) error {
	ds, err := rt.dataset(s.dataset)
	if err != nil {
		return err
	}
	s.ds = ds
	return nil
}

func (s *readStep) Apply(_ context.Context, c *kiln.Context) error {
	rows := make([]kiln.Row, s.ds.Len())
	for i := range rows {
		rows[i] = s.ds.Row(i)
	}
	c.Set(s.output, rows)
	return nil
}

// addColumnStep computes a new column from the record.
type addColumnStep struct {
	name   string
	output string
	valuer Valuer

	rt *runtime
}

// AddColumn computes a new column from the record's other columns. Writing
// over an existing column logs a warning and overwrites.
func AddColumn(name, output string, v Valuer) Step {
	return &addColumnStep{name: name, output: output, valuer: v}
}

func (s *addColumnStep) Name() string { return s.name }

func (s *addColumnStep) bind(rt *runtime) error {
	s.rt = rt
	return s.valuer.Compile()
}

func (s *addColumnStep) Apply(_ context.Context, c *kiln.Context) error {
	if c.Has(s.output) {
		s.rt.logger.Warn("column overwritten",
			"pipeline", s.rt.pipeline,
			"step", s.name,
			"column", s.output)
	}
	v, err := s.valuer.Value(c.Data())
	if err != nil {
		return err
	}
	c.Set(s.output, v)
	return nil
}

// mutateStep recomputes an existing column.
type mutateStep struct {
	name   string
	target string
	valuer Valuer
}

// Mutate recomputes the target column from the record. The target must
// already exist; a missing target fails the record.
func Mutate(name, target string, v Valuer) Step {
	return &mutateStep{name: name, target: target, valuer: v}
}

func (s *mutateStep) Name() string { return s.name }

func (s *mutateStep) bind(_ *runtime) error { return s.valuer.Compile() }

func (s *mutateStep) Apply(_ context.Context, c *kiln.Context) error {
	if !c.Has(s.target) {
		return fmt.Errorf("column %q: %w", s.target, kiln.ErrMissingColumn)
	}
	v, err := s.valuer.Value(c.Data())
	if err != nil {
		return err
	}
	c.Set(s.target, v)
	return nil
}

// addRandomStep binds a uniform random integer column.
type addRandomStep struct {
	name      string
	output    string
	low, high int
}

// AddRandom binds a uniform random integer in [low, high) under output.
func AddRandom(name, output string, low, high int) Step {
	return &addRandomStep{name: name, output: output, low: low, high: high}
}

func (s *addRandomStep) Name() string { return s.name }

func (s *addRandomStep) bind(_ *runtime) error {
	if s.high <= s.low {
		return fmt.Errorf("random range [%d, %d) is empty", s.low, s.high)
	}
	return nil
}

func (s *addRandomStep) Apply(_ context.Context, c *kiln.Context) error {
	c.Set(s.output, s.low+rand.Intn(s.high-s.low))
	return nil
}

// intoListStep collects named columns into a list column.
type intoListStep struct {
	name    string
	columns []string
	output  string
}

// IntoList collects the values of the named columns, in order, into a list
// under output. A missing column fails the record.
func IntoList(name string, columns []string, output string) Step {
	return &intoListStep{name: name, columns: columns, output: output}
}

func (s *intoListStep) Name() string { return s.name }

func (s *intoListStep) Apply(_ context.Context, c *kiln.Context) error {
	out := make([]any, 0, len(s.columns))
	for _, col := range s.columns {
		v, ok := c.Get(col)
		if !ok {
			return fmt.Errorf("column %q: %w", col, kiln.ErrMissingColumn)
		}
		out = append(out, v)
	}
	c.Set(s.output, out)
	return nil
}

// chunkStep splits a text column into size-bounded chunks.
type chunkStep struct {
	name   string
	column string
	output string
	size   int
}

// Chunk splits the text in column into chunks of at most size runes and
// binds them as a string list under output.
func Chunk(name, column, output string, size int) Step {
	return &chunkStep{name: name, column: column, output: output, size: size}
}

func (s *chunkStep) Name() string { return s.name }

func (s *chunkStep) bind(_ *runtime) error {
	if s.size <= 0 {
		return fmt.Errorf("chunk size must be > 0, got %d", s.size)
	}
	return nil
}

func (s *chunkStep) Apply(_ context.Context, c *kiln.Context) error {
	text, ok := c.GetString(s.column)
	if !ok {
		return fmt.Errorf("column %q: %w", s.column, kiln.ErrMissingColumn)
	}
	runes := []rune(text)
	var chunks []string
	for len(runes) > 0 {
		n := s.size
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	c.Set(s.output, chunks)
	return nil
}

// renderStep renders a template into a column.
type renderStep struct {
	name     string
	template string
	output   string

	rt *runtime
}

// Render renders the named template (or a literal template string) against
// the record and binds the result under output.
func Render(name, template, output string) Step {
	return &renderStep{name: name, template: template, output: output}
}

func (s *renderStep) Name() string { return s.name }

func (s *renderStep) bind(rt *runtime) error {
	s.rt = rt
	return nil
}

func (s *renderStep) Apply(_ context.Context, c *kiln.Context) error {
	out, err := s.rt.templates.Render(s.template, c.Data())
	if err != nil {
		return err
	}
	c.Set(s.output, out)
	return nil
}

// printStep writes columns or a rendered template to stdout, for debugging
// pipelines interactively.
type printStep struct {
	name     string
	columns  []string
	template string

	rt *runtime
}

// Print writes the named columns (all columns when none are given) to
// stdout as "key=value" lines.
func Print(name string, columns ...string) Step {
	return &printStep{name: name, columns: columns}
}

// PrintTemplate writes a rendered template to stdout.
func PrintTemplate(name, template string) Step {
	return &printStep{name: name, template: template}
}

func (s *printStep) Name() string { return s.name }

func (s *printStep) bind(rt *runtime) error {
	s.rt = rt
	return nil
}

func (s *printStep) Apply(_ context.Context, c *kiln.Context) error {
	if s.template != "" {
		out, err := s.rt.templates.Render(s.template, c.Data())
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, out)
		return nil
	}

	cols := s.columns
	if len(cols) == 0 {
		cols = c.Keys()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d]", c.Index())
	for _, col := range cols {
		v, ok := c.GetString(col)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, " %s=%s", col, v)
	}
	fmt.Fprintln(os.Stdout, sb.String())
	return nil
}
