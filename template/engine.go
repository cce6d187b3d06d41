// Package template implements the template/expression engine used by
// pipelines: Go text/template rendering with dataset-oriented filter
// functions, and expr-lang evaluation for boolean and value expressions.
package template

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"text/template"

	"github.com/expr-lang/expr"
	"lukechampine.com/blake3"
)

// Engine renders templates and evaluates expressions against a record's
// columns. It implements kiln.TemplateEngine.
//
// Named templates are registered up front with Add; Render falls back to
// treating its argument as a literal template string when the name is
// unknown. Parsed literals are cached. Referencing a missing column is a
// render error (missingkey=error), matching the engine's strict policy of
// failing the record instead of silently emitting "<no value>".
type Engine struct {
	mu       sync.RWMutex
	named    map[string]*template.Template
	literals map[string]*template.Template
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		named:    make(map[string]*template.Template),
		literals: make(map[string]*template.Template),
	}
}

// Add registers a named template. Parse failures surface here, at build time.
func (e *Engine) Add(name, text string) error {
	t, err := parse(name, text)
	if err != nil {
		return fmt.Errorf("template %q: %w", name, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.named[name] = t
	return nil
}

// Has reports whether a template with the given name is registered.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.named[name]
	return ok
}

// Render renders the named template, or the argument itself as a literal
// template, against data.
func (e *Engine) Render(nameOrLiteral string, data map[string]any) (string, error) {
	t, err := e.lookup(nameOrLiteral)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %q: %w", nameOrLiteral, err)
	}
	return sb.String(), nil
}

// EvalBool evaluates a boolean expression such as "age >= 18" against data.
func (e *Engine) EvalBool(src string, data map[string]any) (bool, error) {
	v, err := e.EvalValue(src, data)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q: result is %T, not bool", src, v)
	}
	return b, nil
}

// EvalValue evaluates an expression and returns its value.
func (e *Engine) EvalValue(src string, data map[string]any) (any, error) {
	v, err := expr.Eval(src, data)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	return v, nil
}

func (e *Engine) lookup(nameOrLiteral string) (*template.Template, error) {
	e.mu.RLock()
	if t, ok := e.named[nameOrLiteral]; ok {
		e.mu.RUnlock()
		return t, nil
	}
	if t, ok := e.literals[nameOrLiteral]; ok {
		e.mu.RUnlock()
		return t, nil
	}
	e.mu.RUnlock()

	t, err := parse("literal", nameOrLiteral)
	if err != nil {
		return nil, fmt.Errorf("template literal: %w", err)
	}
	e.mu.Lock()
	e.literals[nameOrLiteral] = t
	e.mu.Unlock()
	return t, nil
}

func parse(name, text string) (*template.Template, error) {
	return template.New(name).
		Option("missingkey=error").
		Funcs(funcMap()).
		Parse(text)
}

// funcMap returns the filter functions available inside templates.
func funcMap() template.FuncMap {
	return template.FuncMap{
		"tojson":    toJSON,
		"fromjson":  fromJSON,
		"randint":   randInt,
		"shuffle":   shuffleSlice,
		"hash":      hashHex,
		"tool_call": toolCall,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"trim":      strings.TrimSpace,
		"join":      joinStrings,
	}
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fromJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// randInt returns a uniform integer in [low, high).
func randInt(low, high int) (int, error) {
	if high <= low {
		return 0, fmt.Errorf("randint: empty range [%d, %d)", low, high)
	}
	return low + rand.Intn(high-low), nil
}

// shuffleSlice returns a shuffled copy; the input is untouched.
func shuffleSlice(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("shuffle: want a list, got %T", v)
	}
	out := make([]any, len(items))
	copy(out, items)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out, nil
}

// hashHex returns the BLAKE3 hex digest of the value's string form.
func hashHex(v any) (string, error) {
	s, err := toStringForm(v)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:]), nil
}

// toolCall formats a tool-call object as <tool_call>{json}</tool_call>.
func toolCall(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return "<tool_call>" + string(b) + "</tool_call>", nil
}

func joinStrings(sep string, v any) (string, error) {
	switch items := v.(type) {
	case []string:
		return strings.Join(items, sep), nil
	case []any:
		parts := make([]string, len(items))
		for i, it := range items {
			s, err := toStringForm(it)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, sep), nil
	default:
		return "", fmt.Errorf("join: want a list, got %T", v)
	}
}

func toStringForm(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
