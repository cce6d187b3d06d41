package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/dedup"
	"github.com/spetersoncode/kiln/state"
)

// Step is one unit of pipeline work. Apply mutates the Context in place; a
// returned error fails that record (never the run, unless it is an
// InfrastructureError). Steps are immutable once the pipeline is built and
// must be safe for concurrent Apply calls on distinct Contexts — any
// cross-record mutable state inside a step is only safe with Workers(1).
type Step interface {
	// Name returns the step's declared name. The compiler derives the
	// unique full name ("<name>--<index>", branch-qualified) from it.
	Name() string

	// Apply runs the step against one record.
	Apply(ctx context.Context, c *kiln.Context) error
}

// binder is implemented by steps that need pipeline resources or have
// build-time compilation to do. The compiler calls bind exactly once per
// step; any error becomes a CompileError.
type binder interface {
	bind(rt *runtime) error
}

// runtime holds the resolved resources every bound step shares.
type runtime struct {
	pipeline   string
	templates  kiln.TemplateEngine
	datasets   map[string]kiln.Dataset
	generators map[string]kiln.Generator
	embedders  map[string]kiln.Embedder
	store      *state.Store
	dedup      *dedup.Engine
	logger     *slog.Logger
	onEvent    EventFunc

	// closers collects resources opened at bind time (writer sinks) for
	// Pipeline.Close to release.
	closers []io.Closer

	// runID is assigned at Run start. A Pipeline runs one execution at a
	// time.
	runID string
}

func (rt *runtime) dataset(name string) (kiln.Dataset, error) {
	ds, ok := rt.datasets[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", name)
	}
	return ds, nil
}

func (rt *runtime) generator(name string) (kiln.Generator, error) {
	g, ok := rt.generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator %q", name)
	}
	return g, nil
}

func (rt *runtime) embedder(name string) (kiln.Embedder, error) {
	e, ok := rt.embedders[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedder %q", name)
	}
	return e, nil
}

// funcStep wraps a plain function as a Step. The function receives the
// Context directly and may mutate it.
type funcStep struct {
	name string
	fn   func(ctx context.Context, c *kiln.Context) error
}

// StepFunc creates a step from a function with full Context access.
func StepFunc(name string, fn func(ctx context.Context, c *kiln.Context) error) Step {
	return &funcStep{name: name, fn: fn}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Apply(ctx context.Context, c *kiln.Context) error {
	return s.fn(ctx, c)
}

// customStep adapts a user callable that works on a plain column map, so
// user code never touches engine types. Returned columns are merged back
// into the Context; a nil map leaves the record unchanged.
type customStep struct {
	name string
	fn   func(ctx context.Context, data map[string]any) (map[string]any, error)
}

// Custom creates a step from a user callable over the record's column map.
func Custom(name string, fn func(ctx context.Context, data map[string]any) (map[string]any, error)) Step {
	return &customStep{name: name, fn: fn}
}

func (s *customStep) Name() string { return s.name }

func (s *customStep) Apply(ctx context.Context, c *kiln.Context) error {
	out, err := s.fn(ctx, c.Data())
	if err != nil {
		return err
	}
	for k, v := range out {
		c.Set(k, v)
	}
	return nil
}
