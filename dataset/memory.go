package dataset

import (
	kiln "github.com/spetersoncode/kiln"
)

// Memory is a dataset over rows already in memory. Useful for tests and
// small seed lists.
type Memory struct {
	name    string
	rows    []kiln.Row
	columns []string
}

// FromRows creates a dataset over the given rows. Column order for iteration
// is taken from the first row's keys via FromRowsOrdered when callers need
// it stable; plain FromRows leaves ordering to the map.
func FromRows(name string, rows []kiln.Row) *Memory {
	return &Memory{name: name, rows: rows}
}

// FromRowsOrdered creates an in-memory dataset with an explicit column
// order, which pipelines use when seeding Contexts.
func FromRowsOrdered(name string, rows []kiln.Row, columns []string) *Memory {
	return &Memory{name: name, rows: rows, columns: columns}
}

// FromValues creates a single-column dataset, one row per value.
func FromValues(name, column string, values []any) *Memory {
	rows := make([]kiln.Row, len(values))
	for i, v := range values {
		rows[i] = kiln.Row{column: v}
	}
	return &Memory{name: name, rows: rows, columns: []string{column}}
}

// Name returns the dataset name.
func (m *Memory) Name() string { return m.name }

// Len returns the number of rows.
func (m *Memory) Len() int { return len(m.rows) }

// Row returns a copy of row i.
func (m *Memory) Row(i int) kiln.Row { return cloneRow(m.rows[i]) }

// Columns returns the declared column order, if any.
func (m *Memory) Columns() []string { return m.columns }

// Sample returns n rows drawn uniformly without replacement.
func (m *Memory) Sample(n int) []kiln.Row { return sample(m, n) }
