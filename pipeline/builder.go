package pipeline

import (
	"fmt"
	"log/slog"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/dedup"
	"github.com/spetersoncode/kiln/state"
	"github.com/spetersoncode/kiln/template"
)

// sourceKind selects where records come from.
type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceRange
	sourceDataset
)

// Builder declares a pipeline. Configuration errors are collected and
// reported by Build, so calls chain without per-call error checks.
type Builder struct {
	name    string
	workers int

	engine     kiln.TemplateEngine
	ownEngine  *template.Engine
	datasets   map[string]kiln.Dataset
	generators map[string]kiln.Generator
	embedders  map[string]kiln.Embedder

	stateDir  string
	stateOpts []state.Option

	logger  *slog.Logger
	onEvent EventFunc

	source       sourceKind
	rangeStart   int
	rangeStop    int
	rangeStep    int
	datasetName  string
	steps        []Step
	buildErrs    []error
}

// New starts declaring a pipeline with the given name. The default worker
// count is 1; keep it at 1 whenever a step carries cross-record mutable
// state, because the engine does not serialize access to user-step state.
func New(name string) *Builder {
	eng := template.New()
	return &Builder{
		name:       name,
		workers:    1,
		engine:     eng,
		ownEngine:  eng,
		datasets:   make(map[string]kiln.Dataset),
		generators: make(map[string]kiln.Generator),
		embedders:  make(map[string]kiln.Embedder),
	}
}

// Workers sets the worker pool size.
func (b *Builder) Workers(n int) *Builder {
	if n < 1 {
		b.buildErrs = append(b.buildErrs, fmt.Errorf("workers must be >= 1, got %d", n))
		return b
	}
	b.workers = n
	return b
}

// Dataset registers a dataset under its own name. Names are unique within
// the pipeline.
func (b *Builder) Dataset(ds kiln.Dataset) *Builder {
	if _, ok := b.datasets[ds.Name()]; ok {
		b.buildErrs = append(b.buildErrs, fmt.Errorf("duplicate dataset %q", ds.Name()))
		return b
	}
	b.datasets[ds.Name()] = ds
	return b
}

// Template registers a named template on the pipeline's template engine.
func (b *Builder) Template(name, text string) *Builder {
	if b.ownEngine == nil {
		b.buildErrs = append(b.buildErrs, fmt.Errorf("Template %q requires the built-in engine; register templates on the custom engine instead", name))
		return b
	}
	if err := b.ownEngine.Add(name, text); err != nil {
		b.buildErrs = append(b.buildErrs, err)
	}
	return b
}

// TemplateEngine replaces the built-in template engine.
func (b *Builder) TemplateEngine(e kiln.TemplateEngine) *Builder {
	b.engine = e
	b.ownEngine = nil
	return b
}

// Generator registers an LLM client under a name steps refer to.
func (b *Builder) Generator(name string, g kiln.Generator) *Builder {
	b.generators[name] = g
	return b
}

// Embedder registers an embedding client under a name steps refer to.
func (b *Builder) Embedder(name string, e kiln.Embedder) *Builder {
	b.embedders[name] = e
	return b
}

// State sets the metadata root directory. Opening the state store enables
// run/item auditing and the dedup steps. state.WithScope(state.ScopeStore)
// extends fingerprint lookups across all runs sharing the directory.
func (b *Builder) State(dir string, opts ...state.Option) *Builder {
	b.stateDir = dir
	b.stateOpts = opts
	return b
}

// Logger sets the logger for run and step diagnostics. Defaults to
// slog.Default().
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// OnEvent sets a callback for run progress events.
func (b *Builder) OnEvent(fn EventFunc) *Builder {
	b.onEvent = fn
	return b
}

// IterRange sources records from the integer range [start, stop) with the
// given stride. Each record starts as {"index": i}.
func (b *Builder) IterRange(start, stop, step int) *Builder {
	if step <= 0 {
		b.buildErrs = append(b.buildErrs, fmt.Errorf("range step must be > 0, got %d", step))
		return b
	}
	b.source = sourceRange
	b.rangeStart = start
	b.rangeStop = stop
	b.rangeStep = step
	return b
}

// IterN sources records from the range [0, n).
func (b *Builder) IterN(n int) *Builder {
	return b.IterRange(0, n, 1)
}

// IterDataset sources records from a registered dataset's rows. Each record
// starts with the row's columns plus "index".
func (b *Builder) IterDataset(name string) *Builder {
	b.source = sourceDataset
	b.datasetName = name
	return b
}

// Steps appends steps to the pipeline chain.
func (b *Builder) Steps(steps ...Step) *Builder {
	b.steps = append(b.steps, steps...)
	return b
}

// Build compiles the pipeline: source validation, step name synthesis and
// uniqueness, expression and conversation-DSL compilation, reference
// resolution, and state store opening. All failures surface here.
func (b *Builder) Build() (*Pipeline, error) {
	if len(b.buildErrs) > 0 {
		return nil, &CompileError{Err: b.buildErrs[0]}
	}
	if b.source == sourceNone {
		return nil, &CompileError{Err: ErrNoSource}
	}
	if b.source == sourceDataset {
		if _, ok := b.datasets[b.datasetName]; !ok {
			return nil, &CompileError{Err: fmt.Errorf("unknown source dataset %q", b.datasetName)}
		}
	}
	if len(b.steps) == 0 {
		return nil, &CompileError{Err: fmt.Errorf("no steps declared")}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	rt := &runtime{
		pipeline:   b.name,
		templates:  b.engine,
		datasets:   b.datasets,
		generators: b.generators,
		embedders:  b.embedders,
		logger:     logger,
		onEvent:    b.onEvent,
	}

	if b.stateDir != "" {
		store, err := state.Open(b.stateDir, b.stateOpts...)
		if err != nil {
			return nil, &CompileError{Err: err}
		}
		rt.store = store
		rt.dedup = dedup.NewEngine(store)
	}

	ch, err := compile(rt, b.steps)
	if err != nil {
		if rt.store != nil {
			_ = rt.store.Close()
		}
		return nil, err
	}

	return &Pipeline{
		name:        b.name,
		workers:     b.workers,
		rt:          rt,
		chain:       ch,
		source:      b.source,
		rangeStart:  b.rangeStart,
		rangeStop:   b.rangeStop,
		rangeStep:   b.rangeStep,
		datasetName: b.datasetName,
	}, nil
}
