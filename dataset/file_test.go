package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kiln "github.com/spetersoncode/kiln"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromJSONL(t *testing.T) {
	path := writeFile(t, "data.jsonl", `{"q":"one","n":1}

{"q":"two","n":2}
`)

	ds, err := FromJSONL("qa", path)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, kiln.Row{"q": "one", "n": float64(1)}, ds.Row(0))

	t.Run("malformed line reports its number", func(t *testing.T) {
		bad := writeFile(t, "bad.jsonl", "{\"ok\":true}\nnot json\n")
		_, err := FromJSONL("qa", bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ":2:")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FromJSONL("qa", filepath.Join(t.TempDir(), "absent.jsonl"))
		assert.Error(t, err)
	})
}

func TestFromJSON(t *testing.T) {
	path := writeFile(t, "data.json", `[{"a":1},{"a":2},{"a":3}]`)

	ds, err := FromJSON("arr", path)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	t.Run("not an array", func(t *testing.T) {
		bad := writeFile(t, "bad.json", `{"a":1}`)
		_, err := FromJSON("arr", bad)
		assert.Error(t, err)
	})
}

func TestFromCSV(t *testing.T) {
	path := writeFile(t, "data.csv", "name,age,score,active\nalice,30,1.5,true\nbob,25,2.25,false\n")

	ds, err := FromCSV("people", path, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"name", "age", "score", "active"}, ds.Columns())

	row := ds.Row(0)
	assert.Equal(t, "alice", row["name"])
	assert.Equal(t, int64(30), row["age"])
	assert.Equal(t, 1.5, row["score"])
	assert.Equal(t, true, row["active"])

	t.Run("custom delimiter", func(t *testing.T) {
		p := writeFile(t, "semi.csv", "a;b\n1;2\n")
		ds, err := FromCSV("semi", p, ';')
		require.NoError(t, err)
		assert.Equal(t, int64(1), ds.Row(0)["a"])
	})

	t.Run("empty file", func(t *testing.T) {
		p := writeFile(t, "empty.csv", "")
		_, err := FromCSV("empty", p, 0)
		assert.ErrorIs(t, err, kiln.ErrEmptyInput)
	})
}
