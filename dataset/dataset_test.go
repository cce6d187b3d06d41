package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kiln "github.com/spetersoncode/kiln"
)

func TestFromRows(t *testing.T) {
	ds := FromRows("seed", []kiln.Row{{"a": 1}, {"a": 2}})

	assert.Equal(t, "seed", ds.Name())
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, kiln.Row{"a": 2}, ds.Row(1))
	assert.Nil(t, ds.Columns())
}

func TestRowReturnsACopy(t *testing.T) {
	ds := FromRows("seed", []kiln.Row{{"a": 1}})

	row := ds.Row(0)
	row["a"] = 99

	assert.Equal(t, kiln.Row{"a": 1}, ds.Row(0))
}

func TestFromValues(t *testing.T) {
	ds := FromValues("topics", "topic", []any{"go", "sql"})

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, kiln.Row{"topic": "go"}, ds.Row(0))
	assert.Equal(t, []string{"topic"}, ds.Columns())
}

func TestSample(t *testing.T) {
	rows := []kiln.Row{{"n": 1}, {"n": 2}, {"n": 3}, {"n": 4}}
	ds := FromRows("seed", rows)

	t.Run("without replacement", func(t *testing.T) {
		got := ds.Sample(3)
		require.Len(t, got, 3)
		seen := make(map[any]bool)
		for _, r := range got {
			assert.False(t, seen[r["n"]], "row sampled twice")
			seen[r["n"]] = true
		}
	})

	t.Run("clamped to length", func(t *testing.T) {
		assert.Len(t, ds.Sample(10), 4)
	})

	t.Run("non-positive n", func(t *testing.T) {
		assert.Empty(t, ds.Sample(0))
	})
}

func TestMix(t *testing.T) {
	a := FromValues("a", "v", []any{"a1", "a2", "a3"})
	b := FromValues("b", "v", []any{"b1"})

	m := Mix("mixed", a, b)

	assert.Equal(t, 4, m.Len())
	// Round-robin until each part is exhausted.
	got := make([]any, m.Len())
	for i := range got {
		got[i] = m.Row(i)["v"]
	}
	assert.Equal(t, []any{"a1", "b1", "a2", "a3"}, got)

	t.Run("sample draws across parts", func(t *testing.T) {
		assert.Len(t, m.Sample(4), 4)
	})
}
