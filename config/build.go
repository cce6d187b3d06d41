package config

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/dataset"
	"github.com/spetersoncode/kiln/pipeline"
	"github.com/spetersoncode/kiln/provider/anthropic"
	"github.com/spetersoncode/kiln/provider/google"
	"github.com/spetersoncode/kiln/provider/openai"
	"github.com/spetersoncode/kiln/state"
)

// BuildOption customizes pipeline construction beyond what the YAML carries.
type BuildOption func(*pipeline.Builder)

// WithLogger routes run and step diagnostics to l.
func WithLogger(l *slog.Logger) BuildOption {
	return func(b *pipeline.Builder) { b.Logger(l) }
}

// WithOnEvent installs a run progress callback.
func WithOnEvent(fn pipeline.EventFunc) BuildOption {
	return func(b *pipeline.Builder) { b.OnEvent(fn) }
}

// WithWorkers overrides the spec's worker count.
func WithWorkers(n int) BuildOption {
	return func(b *pipeline.Builder) { b.Workers(n) }
}

// Build compiles a parsed spec into a runnable pipeline. Providers are
// constructed by type, datasets are loaded eagerly, and steps are mapped
// onto the builder API; all compile-time failures surface here.
func (s *Spec) Build(ctx context.Context, opts ...BuildOption) (*pipeline.Pipeline, error) {
	b := pipeline.New(s.Name)
	if s.Workers > 0 {
		b.Workers(s.Workers)
	}

	if s.State != nil && s.State.Dir != "" {
		var opts []state.Option
		switch s.State.Scope {
		case "", "run":
		case "store":
			opts = append(opts, state.WithScope(state.ScopeStore))
		default:
			return nil, fmt.Errorf("state: unknown scope %q", s.State.Scope)
		}
		b.State(s.State.Dir, opts...)
	}

	for name, text := range s.Templates {
		b.Template(name, text)
	}

	if err := s.buildProviders(ctx, b); err != nil {
		return nil, err
	}
	if err := s.buildDatasets(ctx, b); err != nil {
		return nil, err
	}

	switch {
	case s.Source.Range != nil:
		b.IterRange(s.Source.Range.Start, s.Source.Range.Stop, s.Source.Range.Step)
	case s.Source.Dataset != "":
		b.IterDataset(s.Source.Dataset)
	case s.Source.N > 0:
		b.IterN(s.Source.N)
	default:
		return nil, fmt.Errorf("source: one of n, range, or dataset is required")
	}

	steps, err := buildSteps(s.Steps)
	if err != nil {
		return nil, err
	}
	b.Steps(steps...)

	for _, opt := range opts {
		opt(b)
	}

	return b.Build()
}

func (s *Spec) buildProviders(ctx context.Context, b *pipeline.Builder) error {
	for name, p := range s.Providers {
		var g kiln.Generator
		switch p.Type {
		case "openai":
			var opts []openai.ClientOption
			if p.Model != "" {
				opts = append(opts, openai.WithModel(p.Model))
			}
			if p.EmbeddingModel != "" {
				opts = append(opts, openai.WithEmbeddingModel(p.EmbeddingModel))
			}
			if p.BaseURL != "" {
				opts = append(opts, openai.WithBaseURL(p.BaseURL))
			}
			g = openai.New(p.APIKey, opts...)
		case "anthropic":
			var opts []anthropic.ClientOption
			if p.APIKey != "" {
				opts = append(opts, anthropic.WithAPIKey(p.APIKey))
			}
			if p.Model != "" {
				opts = append(opts, anthropic.WithModel(p.Model))
			}
			g = anthropic.New(opts...)
		case "google":
			var opts []google.ClientOption
			if p.Model != "" {
				opts = append(opts, google.WithModel(p.Model))
			}
			if p.EmbeddingModel != "" {
				opts = append(opts, google.WithEmbeddingModel(p.EmbeddingModel))
			}
			client, err := google.New(ctx, p.APIKey, opts...)
			if err != nil {
				return fmt.Errorf("provider %q: %w", name, err)
			}
			g = client
		default:
			return fmt.Errorf("provider %q: unknown type %q", name, p.Type)
		}

		b.Generator(name, g)
		if e, ok := g.(kiln.Embedder); ok {
			b.Embedder(name, e)
		}
	}
	return nil
}

func (s *Spec) buildDatasets(ctx context.Context, b *pipeline.Builder) error {
	// Mix parts reference earlier entries, so keep what we build.
	built := make(map[string]kiln.Dataset, len(s.Datasets))

	for _, d := range s.Datasets {
		var (
			ds  kiln.Dataset
			err error
		)
		switch d.Type {
		case "jsonl":
			ds, err = dataset.FromJSONL(d.Name, d.Path)
		case "json":
			ds, err = dataset.FromJSON(d.Name, d.Path)
		case "csv":
			var delim rune
			delim, err = delimiterRune(d.Delimiter)
			if err == nil {
				ds, err = dataset.FromCSV(d.Name, d.Path, delim)
			}
		case "sqlite":
			ds, err = dataset.FromSQLite(ctx, d.Name, d.Path, d.Query)
		case "mcp":
			ds, err = dataset.FromMCP(ctx, d.Name, d.Command, d.Env, d.Args...)
		case "mcp-sse":
			ds, err = dataset.FromMCPSSE(ctx, d.Name, d.URL)
		case "values":
			if d.Column == "" {
				err = fmt.Errorf("values dataset requires a column")
			} else {
				ds = dataset.FromValues(d.Name, d.Column, d.Values)
			}
		case "mix":
			parts := make([]kiln.Dataset, 0, len(d.Parts))
			for _, p := range d.Parts {
				part, ok := built[p]
				if !ok {
					err = fmt.Errorf("mix part %q not declared before %q", p, d.Name)
					break
				}
				parts = append(parts, part)
			}
			if err == nil {
				ds = dataset.Mix(d.Name, parts...)
			}
		default:
			err = fmt.Errorf("unknown type %q", d.Type)
		}
		if err != nil {
			return fmt.Errorf("dataset %q: %w", d.Name, err)
		}

		built[d.Name] = ds
		b.Dataset(ds)
	}
	return nil
}

func buildSteps(specs []StepSpec) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(specs))
	for i, sp := range specs {
		st, err := buildStep(sp)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, sp.Kind, err)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func buildStep(sp StepSpec) (pipeline.Step, error) {
	switch sp.Kind {
	case "sample":
		return pipeline.Sample(sp.Name, sp.Dataset, sp.Size, sp.Output), nil
	case "read":
		return pipeline.Read(sp.Name, sp.Dataset, sp.Output), nil
	case "add-column":
		return pipeline.AddColumn(sp.Name, sp.Output, pipeline.ValueExpr(sp.Expr)), nil
	case "mutate":
		return pipeline.Mutate(sp.Name, sp.Target, pipeline.ValueExpr(sp.Expr)), nil
	case "add-random":
		return pipeline.AddRandom(sp.Name, sp.Output, sp.Low, sp.High), nil
	case "into-list":
		return pipeline.IntoList(sp.Name, sp.Columns, sp.Output), nil
	case "chunk":
		return pipeline.Chunk(sp.Name, sp.Column, sp.Output, sp.Size), nil
	case "render":
		return pipeline.Render(sp.Name, sp.Template, sp.Output), nil
	case "print":
		if sp.Template != "" {
			return pipeline.PrintTemplate(sp.Name, sp.Template), nil
		}
		return pipeline.Print(sp.Name, sp.Columns...), nil
	case "filter":
		return pipeline.Filter(sp.Name, pipeline.Expr(sp.Expr)), nil
	case "text-generation":
		opts, err := genOptions(sp)
		if err != nil {
			return nil, err
		}
		return pipeline.TextGeneration(sp.Name, sp.Generator, sp.Prompt, sp.Output, opts...), nil
	case "json-generation":
		opts, err := genOptions(sp)
		if err != nil {
			return nil, err
		}
		return pipeline.JsonGeneration(sp.Name, sp.Generator, sp.Prompt, sp.Output, opts...), nil
	case "judge":
		opts, err := genOptions(sp)
		if err != nil {
			return nil, err
		}
		return pipeline.Judge(sp.Name, sp.Generator, sp.Input, sp.Prompt, sp.Output, opts...), nil
	case "validate-json":
		return pipeline.ValidateJSON(sp.Name, sp.SchemaTemplate, sp.Instance), nil
	case "validate-tools":
		return pipeline.ValidateTools(sp.Name, sp.Column), nil
	case "normalize-tools":
		return pipeline.NormalizeTools(sp.Name, sp.Column), nil
	case "check-language":
		lang, err := pipeline.ParseLanguage(sp.Language)
		if err != nil {
			return nil, err
		}
		return pipeline.CheckLanguage(sp.Name, sp.Column, lang, sp.Precision), nil
	case "check-hash":
		return pipeline.CheckHash(sp.Name, sp.Field), nil
	case "check-simhash":
		return pipeline.CheckSimHash(sp.Name, sp.Field, int(sp.Threshold)), nil
	case "check-embedding":
		var opts []pipeline.EmbeddingOption
		if sp.SimilarityOutput != "" {
			opts = append(opts, pipeline.WithSimilarityOutput(sp.SimilarityOutput))
		}
		return pipeline.CheckEmbedding(sp.Name, sp.Embedder, sp.Field, sp.Threshold, opts...), nil
	case "render-conversation":
		return pipeline.RenderConversation(sp.Name, sp.DSL, sp.Output, convOptions(sp)...), nil
	case "render-sft":
		return pipeline.RenderSFT(sp.Name, sp.DSL, sp.Output, convOptions(sp)...), nil
	case "render-dpo":
		return pipeline.RenderDPO(sp.Name, sp.DSL, sp.Chosen, sp.Rejected, sp.Output, convOptions(sp)...), nil
	case "render-grpo":
		return pipeline.RenderGRPO(sp.Name, sp.DSL, sp.Solution, sp.Validator, sp.Output, convOptions(sp)...), nil
	case "write-jsonl":
		if sp.Field != "" {
			return pipeline.WriteJSONLField(sp.Name, sp.Path, sp.Field), nil
		}
		return pipeline.WriteJSONL(sp.Name, sp.Path, sp.Template), nil
	case "write-csv":
		delim, err := delimiterRune(sp.Delimiter)
		if err != nil {
			return nil, err
		}
		return pipeline.WriteCSV(sp.Name, sp.Path, sp.Columns, delim), nil
	case "if":
		thenSteps, err := buildSteps(sp.Then)
		if err != nil {
			return nil, err
		}
		elseSteps, err := buildSteps(sp.Else)
		if err != nil {
			return nil, err
		}
		return pipeline.IfElse(sp.Name, pipeline.Expr(sp.Expr), thenSteps, elseSteps), nil
	default:
		return nil, fmt.Errorf("unknown step kind %q", sp.Kind)
	}
}

func genOptions(sp StepSpec) ([]pipeline.GenOption, error) {
	var opts []pipeline.GenOption
	if sp.System != "" {
		opts = append(opts, pipeline.WithSystem(sp.System))
	}
	if sp.MaxTokens > 0 {
		opts = append(opts, pipeline.WithGenMaxTokens(sp.MaxTokens))
	}
	if sp.Temperature != nil {
		opts = append(opts, pipeline.WithGenTemperature(*sp.Temperature))
	}
	if sp.JSONPath != "" {
		opts = append(opts, pipeline.WithJSONPath(sp.JSONPath))
	}
	if sp.SchemaTemplate != "" {
		opts = append(opts, pipeline.WithSchemaTemplate(sp.SchemaTemplate))
	} else if !sp.Schema.IsZero() {
		raw, err := schemaJSON(sp.Schema)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithSchema(sp.SchemaName, raw))
	}
	return opts, nil
}

func convOptions(sp StepSpec) []pipeline.ConversationOption {
	var opts []pipeline.ConversationOption
	if sp.Separator != "" {
		opts = append(opts, pipeline.WithSeparator(sp.Separator))
	}
	if sp.Tools != "" {
		opts = append(opts, pipeline.WithTools(sp.Tools))
	}
	if sp.ConversationID != "" {
		opts = append(opts, pipeline.WithConversationID(sp.ConversationID))
	}
	return opts
}

func delimiterRune(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r, nil
}
