package dataset

import (
	"math/rand"

	kiln "github.com/spetersoncode/kiln"
)

// Mixed interleaves several datasets round-robin, so iterating it
// alternates between the sources until each is exhausted. Sampling draws
// from the combined pool.
type Mixed struct {
	name    string
	parts   []kiln.Dataset
	indices [][2]int
}

// Mix builds an interleaved dataset over the given parts.
func Mix(name string, parts ...kiln.Dataset) *Mixed {
	m := &Mixed{name: name, parts: parts}
	max := 0
	for _, p := range parts {
		if p.Len() > max {
			max = p.Len()
		}
	}
	for round := 0; round < max; round++ {
		for pi, p := range parts {
			if round < p.Len() {
				m.indices = append(m.indices, [2]int{pi, round})
			}
		}
	}
	return m
}

// Name returns the dataset name.
func (m *Mixed) Name() string { return m.name }

// Len returns the combined row count.
func (m *Mixed) Len() int { return len(m.indices) }

// Row returns row i of the interleaved order.
func (m *Mixed) Row(i int) kiln.Row {
	ref := m.indices[i]
	return m.parts[ref[0]].Row(ref[1])
}

// Sample returns n rows drawn uniformly across all parts.
func (m *Mixed) Sample(n int) []kiln.Row {
	if n <= 0 {
		return nil
	}
	if n > m.Len() {
		n = m.Len()
	}
	idx := rand.Perm(m.Len())[:n]
	out := make([]kiln.Row, n)
	for i, j := range idx {
		out[i] = m.Row(j)
	}
	return out
}
