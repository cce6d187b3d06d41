package kiln

import "context"

// Row is one dataset record: a JSON object decoded into a Go map.
type Row = map[string]any

// Dataset is a named, read-only table of rows. Implementations load their
// source eagerly (file, SQL query, MCP catalog) so reads need no locking.
type Dataset interface {
	// Name returns the dataset's pipeline-unique name.
	Name() string

	// Len returns the number of rows.
	Len() int

	// Row returns the row at index i. Panics if out of range, like a slice.
	Row(i int) Row

	// Sample draws n rows uniformly at random, independent per call.
	// When n >= Len() every row is returned once, in shuffled order.
	Sample(n int) []Row
}

// TemplateEngine is the template/expression collaborator. It renders string
// templates against a record's columns and evaluates boolean or value
// expressions for filters, conditions, and mutations.
type TemplateEngine interface {
	// Render renders the named template — or, if no template with that name
	// is registered, treats the argument as a literal template string —
	// against data. Referencing a missing column is an error.
	Render(nameOrLiteral string, data map[string]any) (string, error)

	// EvalBool evaluates a boolean expression such as "age >= 18" against
	// data.
	EvalBool(expr string, data map[string]any) (bool, error)

	// EvalValue evaluates an expression and returns its value.
	EvalValue(expr string, data map[string]any) (any, error)
}

// StopFunc cancels a running pipeline when called. In-flight Contexts drain;
// no new source items are dispatched.
type StopFunc = context.CancelFunc
