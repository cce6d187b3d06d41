package dedup

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu         sync.Mutex
	hashes     map[string]bool
	simhashes  map[string][]uint64
	embeddings map[string][][]float32
}

func newMemStore() *memStore {
	return &memStore{
		hashes:     make(map[string]bool),
		simhashes:  make(map[string][]uint64),
		embeddings: make(map[string][][]float32),
	}
}

func (m *memStore) AddHash(_ context.Context, runID string, _ int, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[runID+"/"+field+"/"+value] = true
	return nil
}

func (m *memStore) HashExists(_ context.Context, runID, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes[runID+"/"+field+"/"+value], nil
}

func (m *memStore) AddSimHash(_ context.Context, runID string, _ int, field string, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := runID + "/" + field
	m.simhashes[key] = append(m.simhashes[key], value)
	return nil
}

func (m *memStore) SimHashes(_ context.Context, runID, field string) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simhashes[runID+"/"+field], nil
}

func (m *memStore) AddEmbedding(_ context.Context, runID string, _ int, field string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := runID + "/" + field
	m.embeddings[key] = append(m.embeddings[key], vec)
	return nil
}

func (m *memStore) Embeddings(_ context.Context, runID, field string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embeddings[runID+"/"+field], nil
}

func TestCheckHash(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	dup, err := e.CheckHash(ctx, "run1", 0, "text", "hello")
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = e.CheckHash(ctx, "run1", 1, "text", "hello")
	require.NoError(t, err)
	assert.True(t, dup)

	t.Run("different field is independent", func(t *testing.T) {
		dup, err := e.CheckHash(ctx, "run1", 2, "other", "hello")
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("key order irrelevant for objects", func(t *testing.T) {
		dup, err := e.CheckHash(ctx, "run1", 3, "obj", map[string]any{"a": 1, "b": 2})
		require.NoError(t, err)
		assert.False(t, dup)

		dup, err = e.CheckHash(ctx, "run1", 4, "obj", map[string]any{"b": 2, "a": 1})
		require.NoError(t, err)
		assert.True(t, dup)
	})
}

func TestCheckSimHash(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	base := "the quick brown fox jumps over the lazy dog"

	dup, err := e.CheckSimHash(ctx, "run1", 0, "text", base, 3)
	require.NoError(t, err)
	assert.False(t, dup)

	t.Run("case variant within threshold", func(t *testing.T) {
		dup, err := e.CheckSimHash(ctx, "run1", 1, "text", "The QUICK brown fox jumps over the lazy dog", 3)
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("distant text passes", func(t *testing.T) {
		dup, err := e.CheckSimHash(ctx, "run1", 2, "text", "grpc streaming backpressure is handled by flow control windows", 3)
		require.NoError(t, err)
		assert.False(t, dup)
	})
}

func TestCheckEmbedding(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	dup, sim, err := e.CheckEmbedding(ctx, "run1", 0, "vec", []float64{1, 0, 0}, 0.9)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Zero(t, sim)

	t.Run("identical vector is a duplicate", func(t *testing.T) {
		dup, sim, err := e.CheckEmbedding(ctx, "run1", 1, "vec", []float64{1, 0, 0}, 0.9)
		require.NoError(t, err)
		assert.True(t, dup)
		assert.InDelta(t, 1.0, sim, 1e-6)
	})

	t.Run("orthogonal vector passes with similarity exposed", func(t *testing.T) {
		dup, sim, err := e.CheckEmbedding(ctx, "run1", 2, "vec", []float64{0, 1, 0}, 0.9)
		require.NoError(t, err)
		assert.False(t, dup)
		assert.InDelta(t, 0.0, sim, 1e-6)
	})
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}
