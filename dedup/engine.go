package dedup

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Store is the persistence the Engine needs: append-only fingerprint tables
// keyed by run and field. Implemented by state.Store; whether lookups span
// one run or the whole store is the store's scope setting.
type Store interface {
	AddHash(ctx context.Context, runID string, itemIndex int, field, value string) error
	HashExists(ctx context.Context, runID, field, value string) (bool, error)

	AddSimHash(ctx context.Context, runID string, itemIndex int, field string, value uint64) error
	SimHashes(ctx context.Context, runID, field string) ([]uint64, error)

	AddEmbedding(ctx context.Context, runID string, itemIndex int, field string, vec []float32) error
	Embeddings(ctx context.Context, runID, field string) ([][]float32, error)
}

// Engine runs duplicate checks against shared state. Every check is a
// read-then-write: compare against all previously stored fingerprints, then
// append the new one. The mutex makes compare+append atomic so concurrent
// workers can never both pass with the same fingerprint.
type Engine struct {
	mu    sync.Mutex
	store Store
}

// NewEngine creates an Engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// CheckHash fingerprints value with an exact content hash. It returns true
// if an identical fingerprint was already stored; otherwise the fingerprint
// is appended and false is returned.
func (e *Engine) CheckHash(ctx context.Context, runID string, itemIndex int, field string, value any) (bool, error) {
	hash, err := HashValue(value)
	if err != nil {
		return false, fmt.Errorf("hash %q: %w", field, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.store.HashExists(ctx, runID, field, hash)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	if err := e.store.AddHash(ctx, runID, itemIndex, field, hash); err != nil {
		return false, err
	}
	return false, nil
}

// candidateStore is implemented by stores that can preselect simhash
// candidates by 16-bit band equality. Band preselection is complete for
// thresholds up to 3; above that the engine falls back to a full scan.
type candidateStore interface {
	SimHashCandidates(ctx context.Context, runID, field string, query uint64) ([]uint64, error)
}

// CheckSimHash fingerprints text with a 64-bit simhash and returns true if
// any stored fingerprint for this field is within threshold Hamming bits.
// Otherwise the fingerprint is appended and false is returned.
func (e *Engine) CheckSimHash(ctx context.Context, runID string, itemIndex int, field, text string, threshold int) (bool, error) {
	fingerprint := SimHash64(text)

	e.mu.Lock()
	defer e.mu.Unlock()

	var seen []uint64
	var err error
	if cs, ok := e.store.(candidateStore); ok && threshold <= 3 {
		seen, err = cs.SimHashCandidates(ctx, runID, field, fingerprint)
	} else {
		seen, err = e.store.SimHashes(ctx, runID, field)
	}
	if err != nil {
		return false, err
	}
	for _, s := range seen {
		if IsSimilar(s, fingerprint, threshold) {
			return true, nil
		}
	}
	if err := e.store.AddSimHash(ctx, runID, itemIndex, field, fingerprint); err != nil {
		return false, err
	}
	return false, nil
}

// CheckEmbedding compares vec against all stored embeddings for this field
// and returns (true, maxSimilarity) if the maximum cosine similarity exceeds
// threshold. Otherwise the vector is appended and (false, maxSimilarity) is
// returned, so callers can expose the realized similarity either way.
func (e *Engine) CheckEmbedding(ctx context.Context, runID string, itemIndex int, field string, vec []float64, threshold float64) (bool, float64, error) {
	q := toFloat32(vec)

	e.mu.Lock()
	defer e.mu.Unlock()

	stored, err := e.store.Embeddings(ctx, runID, field)
	if err != nil {
		return false, 0, err
	}
	maxSim := 0.0
	for _, s := range stored {
		if len(s) != len(q) {
			continue
		}
		if sim := Cosine(s, q); sim > maxSim {
			maxSim = sim
		}
	}
	if maxSim > threshold {
		return true, maxSim, nil
	}
	if err := e.store.AddEmbedding(ctx, runID, itemIndex, field, q); err != nil {
		return false, maxSim, err
	}
	return false, maxSim, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
