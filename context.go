package kiln

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Status represents the processing state of a Context.
type Status int

const (
	// StatusRunning means the Context is still moving through the chain.
	StatusRunning Status = iota
	// StatusCompleted means the Context made it through every step.
	StatusCompleted
	// StatusFailed means a step dropped the Context (filter miss, duplicate,
	// validation failure, or error). Failed Contexts never reach a writer.
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Context is the unit of data flowing through a pipeline: one record's
// columns plus a status flag. Keys preserve insertion order so that rendered
// output is deterministic; later writes to an existing key overwrite in place.
//
// A Context is owned by exactly one worker for its whole lifetime, so its
// methods are not synchronized. Cross-record state lives in the state store,
// never in the Context.
type Context struct {
	id     string
	index  int
	keys   []string
	values map[string]any
	status Status
}

// NewContext creates a Context for the source item at the given ordinal.
// The "index" column is always present.
func NewContext(index int) *Context {
	c := &Context{
		id:     uuid.New().String(),
		index:  index,
		values: make(map[string]any),
	}
	c.Set("index", index)
	return c
}

// NewContextFromRow creates a Context seeded with a dataset row's columns.
// The row's own columns are bound first, then "index" is set (overwriting a
// row column of the same name).
func NewContextFromRow(index int, row map[string]any, order []string) *Context {
	c := &Context{
		id:     uuid.New().String(),
		index:  index,
		values: make(map[string]any, len(row)+1),
	}
	for _, k := range order {
		if v, ok := row[k]; ok {
			c.Set(k, v)
		}
	}
	for k, v := range row {
		if !c.Has(k) {
			c.Set(k, v)
		}
	}
	c.Set("index", index)
	return c
}

// ID returns the unique identifier assigned at creation.
func (c *Context) ID() string { return c.id }

// Index returns the source item ordinal this Context was created for.
func (c *Context) Index() int { return c.index }

// Status returns the current processing status.
func (c *Context) Status() Status { return c.status }

// Fail marks the Context as failed. Once failed it stays failed.
func (c *Context) Fail() { c.status = StatusFailed }

// Complete marks the Context as completed unless it already failed.
func (c *Context) Complete() {
	if c.status != StatusFailed {
		c.status = StatusCompleted
	}
}

// Failed reports whether the Context has been dropped.
func (c *Context) Failed() bool { return c.status == StatusFailed }

// Set binds a value under key, overwriting any previous value.
func (c *Context) Set(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns the value bound under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is bound.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// GetString returns the value under key coerced to a string. Non-string
// values are rendered as their compact JSON form.
func (c *Context) GetString(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

// Keys returns the column names in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of bound columns.
func (c *Context) Len() int { return len(c.keys) }

// Data returns a plain map view of the columns for template rendering,
// expression evaluation, and user-supplied steps. The map is a shallow
// copy; mutating it does not touch the Context.
func (c *Context) Data() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Clone creates a deep-enough copy for branch-free experimentation: the key
// order and map are copied, values are shared.
func (c *Context) Clone() *Context {
	clone := &Context{
		id:     c.id,
		index:  c.index,
		keys:   make([]string, len(c.keys)),
		values: make(map[string]any, len(c.values)),
		status: c.status,
	}
	copy(clone.keys, c.keys)
	for k, v := range c.values {
		clone.values[k] = v
	}
	return clone
}

// Stringify renders a value the way writers and conversation turns expect
// string content: strings pass through, everything else becomes compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
