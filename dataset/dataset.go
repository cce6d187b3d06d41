// Package dataset provides the record sources pipelines draw from: in-memory
// rows, JSONL/JSON/CSV files, SQLite queries, MCP tool catalogs, and mixes
// of other datasets. All sources load eagerly at construction so that every
// error surfaces before a run starts and Len/Row are cheap afterwards.
package dataset

import (
	"math/rand"

	kiln "github.com/spetersoncode/kiln"
)

// sample returns n rows drawn uniformly without replacement, or all rows
// when n exceeds the dataset size.
func sample(ds kiln.Dataset, n int) []kiln.Row {
	if n <= 0 {
		return nil
	}
	size := ds.Len()
	if n > size {
		n = size
	}
	idx := rand.Perm(size)[:n]
	out := make([]kiln.Row, n)
	for i, j := range idx {
		out[i] = ds.Row(j)
	}
	return out
}

// cloneRow copies a row so callers can mutate results without touching the
// dataset's backing storage.
func cloneRow(r kiln.Row) kiln.Row {
	out := make(kiln.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
