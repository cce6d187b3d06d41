package pipeline

import (
	"context"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// dedupBase is what all three dedup checks share: the engine from the
// runtime and the field under test. Binding fails when the pipeline has no
// state store.
type dedupBase struct {
	name  string
	field string

	rt *runtime
}

func (s *dedupBase) Name() string { return s.name }

func (s *dedupBase) bind(rt *runtime) error {
	if rt.store == nil {
		return ErrNoState
	}
	s.rt = rt
	return nil
}

// checkHashStep drops records whose field was seen before, byte-for-byte.
type checkHashStep struct {
	dedupBase
}

// CheckHash fails the record when the field's canonical serialization was
// already fingerprinted in this run scope; otherwise the fingerprint is
// recorded and the record passes. Requires State on the builder.
func CheckHash(name, field string) Step {
	return &checkHashStep{dedupBase{name: name, field: field}}
}

func (s *checkHashStep) Apply(ctx context.Context, c *kiln.Context) error {
	v, ok := c.Get(s.field)
	if !ok {
		return fmt.Errorf("column %q: %w", s.field, kiln.ErrMissingColumn)
	}
	dup, err := s.rt.dedup.CheckHash(ctx, s.rt.runID, c.Index(), s.field, v)
	if err != nil {
		return infra(err)
	}
	if dup {
		return fmt.Errorf("hash match on %q: %w", s.field, ErrDuplicate)
	}
	return nil
}

// checkSimHashStep drops near-duplicate text.
type checkSimHashStep struct {
	dedupBase
	threshold int
}

// CheckSimHash fails the record when the field's 64-bit simhash is within
// threshold Hamming bits of any stored fingerprint in this run scope.
// Requires State on the builder.
func CheckSimHash(name, field string, threshold int) Step {
	return &checkSimHashStep{dedupBase: dedupBase{name: name, field: field}, threshold: threshold}
}

func (s *checkSimHashStep) bind(rt *runtime) error {
	if s.threshold < 0 || s.threshold > 64 {
		return fmt.Errorf("simhash threshold must be in [0, 64], got %d", s.threshold)
	}
	return s.dedupBase.bind(rt)
}

func (s *checkSimHashStep) Apply(ctx context.Context, c *kiln.Context) error {
	text, ok := c.GetString(s.field)
	if !ok {
		return fmt.Errorf("column %q: %w", s.field, kiln.ErrMissingColumn)
	}
	dup, err := s.rt.dedup.CheckSimHash(ctx, s.rt.runID, c.Index(), s.field, text, s.threshold)
	if err != nil {
		return infra(err)
	}
	if dup {
		return fmt.Errorf("simhash within %d bits on %q: %w", s.threshold, s.field, ErrDuplicate)
	}
	return nil
}

// EmbeddingOption configures CheckEmbedding.
type EmbeddingOption func(*checkEmbeddingStep)

// WithSimilarityOutput binds the realized maximum cosine similarity under
// the given column, whether or not the record is dropped.
func WithSimilarityOutput(column string) EmbeddingOption {
	return func(s *checkEmbeddingStep) { s.similarityOutput = column }
}

// checkEmbeddingStep drops semantic duplicates by embedding similarity.
type checkEmbeddingStep struct {
	dedupBase
	embedder         string
	threshold        float64
	similarityOutput string

	emb kiln.Embedder
}

// CheckEmbedding embeds the field's text with the named embedder and fails
// the record when the maximum cosine similarity against stored embeddings
// exceeds threshold. Requires State on the builder.
func CheckEmbedding(name, embedder, field string, threshold float64, opts ...EmbeddingOption) Step {
	s := &checkEmbeddingStep{
		dedupBase: dedupBase{name: name, field: field},
		embedder:  embedder,
		threshold: threshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *checkEmbeddingStep) bind(rt *runtime) error {
	emb, err := rt.embedder(s.embedder)
	if err != nil {
		return err
	}
	s.emb = emb
	return s.dedupBase.bind(rt)
}

func (s *checkEmbeddingStep) Apply(ctx context.Context, c *kiln.Context) error {
	text, ok := c.GetString(s.field)
	if !ok {
		return fmt.Errorf("column %q: %w", s.field, kiln.ErrMissingColumn)
	}

	vecs, err := s.emb.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vecs) == 0 {
		return fmt.Errorf("embed: %w", kiln.ErrEmptyInput)
	}

	dup, maxSim, err := s.rt.dedup.CheckEmbedding(ctx, s.rt.runID, c.Index(), s.field, vecs[0], s.threshold)
	if err != nil {
		return infra(err)
	}
	if s.similarityOutput != "" {
		c.Set(s.similarityOutput, maxSim)
	}
	if dup {
		return fmt.Errorf("cosine similarity %.4f above %.4f on %q: %w",
			maxSim, s.threshold, s.field, ErrDuplicate)
	}
	return nil
}

var (
	_ Step = (*checkHashStep)(nil)
	_ Step = (*checkSimHashStep)(nil)
	_ Step = (*checkEmbeddingStep)(nil)
)
