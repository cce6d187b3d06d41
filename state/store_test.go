package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, filepath.Join(dir, DBFile))
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s1.CreateRun(context.Background(), "r1", "p"))
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.Runs(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "r1", "synth"))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
	assert.Equal(t, "synth", runs[0].PipelineName)
	assert.Equal(t, "running", runs[0].Status)
	assert.Zero(t, runs[0].TotalItems)
	assert.False(t, runs[0].StartedAt.IsZero())

	require.NoError(t, s.FinishRun(ctx, "r1", 42, "completed"))

	runs, err = s.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, runs[0].TotalItems)
	assert.Equal(t, "completed", runs[0].Status)
}

func TestItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "r1", "p"))
	require.NoError(t, s.AddItem(ctx, "r1", 1, "failed"))
	require.NoError(t, s.AddItem(ctx, "r1", 0, "completed"))

	items, err := s.Items(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].ItemIndex)
	assert.Equal(t, "completed", items[0].Status)
	assert.Equal(t, 1, items[1].ItemIndex)

	t.Run("re-adding updates status", func(t *testing.T) {
		require.NoError(t, s.AddItem(ctx, "r1", 1, "completed"))
		items, err := s.Items(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "completed", items[1].Status)
	})
}

func TestHashScope(t *testing.T) {
	ctx := context.Background()

	t.Run("run scope isolates runs", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, s.AddHash(ctx, "r1", 0, "text", "abc"))

		exists, err := s.HashExists(ctx, "r1", "text", "abc")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = s.HashExists(ctx, "r2", "text", "abc")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("store scope spans runs", func(t *testing.T) {
		s := openTestStore(t, WithScope(ScopeStore))
		assert.Equal(t, ScopeStore, s.Scope())

		require.NoError(t, s.AddHash(ctx, "r1", 0, "text", "abc"))

		exists, err := s.HashExists(ctx, "r2", "text", "abc")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("field isolates fingerprints", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, s.AddHash(ctx, "r1", 0, "a", "abc"))

		exists, err := s.HashExists(ctx, "r1", "b", "abc")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestSimHashRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// High bit set: the full pattern must survive int64 storage.
	values := []uint64{0xFFFF_FFFF_FFFF_FFFF, 0x8000_0000_0000_0001, 42}
	for i, v := range values {
		require.NoError(t, s.AddSimHash(ctx, "r1", i, "text", v))
	}

	got, err := s.SimHashes(ctx, "r1", "text")
	require.NoError(t, err)
	assert.ElementsMatch(t, values, got)
}

func TestSimHashCandidates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	query := uint64(0x1111_2222_3333_4444)
	sharesBand := uint64(0x9999_8888_7777_4444) // same low band
	noBand := uint64(0x5555_6666_7777_8888)

	require.NoError(t, s.AddSimHash(ctx, "r1", 0, "text", sharesBand))
	require.NoError(t, s.AddSimHash(ctx, "r1", 1, "text", noBand))

	got, err := s.SimHashCandidates(ctx, "r1", "text", query)
	require.NoError(t, err)
	assert.Equal(t, []uint64{sharesBand}, got)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	vec := []float32{0.5, -1.25, 3.0}
	require.NoError(t, s.AddEmbedding(ctx, "r1", 0, "vec", vec))

	got, err := s.Embeddings(ctx, "r1", "vec")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, vec, got[0])

	t.Run("scoped by run", func(t *testing.T) {
		got, err := s.Embeddings(ctx, "r2", "vec")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
