package pipeline

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Predicate is a boolean test over a record's columns. Filter and IfElse
// treat compiled string expressions and native closures uniformly.
type Predicate interface {
	// Compile prepares the predicate; expression parse errors surface here,
	// at pipeline build time.
	Compile() error

	// Eval evaluates the predicate against the record's columns.
	Eval(data map[string]any) (bool, error)
}

// exprPredicate compiles an expr-lang expression such as "age >= 18".
type exprPredicate struct {
	src     string
	program *vm.Program
}

// Expr creates a predicate from an expression string. Columns are referenced
// by name; the expression must evaluate to a boolean.
func Expr(src string) Predicate {
	return &exprPredicate{src: src}
}

func (p *exprPredicate) Compile() error {
	program, err := expr.Compile(p.src, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return fmt.Errorf("expression %q: %w", p.src, err)
	}
	p.program = program
	return nil
}

func (p *exprPredicate) Eval(data map[string]any) (bool, error) {
	out, err := expr.Run(p.program, data)
	if err != nil {
		return false, fmt.Errorf("expression %q: %w", p.src, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q: result is %T, not bool", p.src, out)
	}
	return b, nil
}

// funcPredicate wraps a native closure.
type funcPredicate struct {
	fn func(data map[string]any) (bool, error)
}

// PredicateFunc creates a predicate from a closure.
func PredicateFunc(fn func(data map[string]any) (bool, error)) Predicate {
	return &funcPredicate{fn: fn}
}

func (p *funcPredicate) Compile() error { return nil }

func (p *funcPredicate) Eval(data map[string]any) (bool, error) {
	return p.fn(data)
}

// Valuer produces a column value from a record's columns. AddColumn and
// Mutate accept compiled expressions and native closures uniformly.
type Valuer interface {
	// Compile prepares the valuer; parse errors surface at build time.
	Compile() error

	// Value computes the value against the record's columns.
	Value(data map[string]any) (any, error)
}

// exprValuer compiles an expr-lang expression producing a value.
type exprValuer struct {
	src     string
	program *vm.Program
}

// ValueExpr creates a valuer from an expression string.
func ValueExpr(src string) Valuer {
	return &exprValuer{src: src}
}

func (v *exprValuer) Compile() error {
	program, err := expr.Compile(v.src, expr.AllowUndefinedVariables())
	if err != nil {
		return fmt.Errorf("expression %q: %w", v.src, err)
	}
	v.program = program
	return nil
}

func (v *exprValuer) Value(data map[string]any) (any, error) {
	out, err := expr.Run(v.program, data)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", v.src, err)
	}
	return out, nil
}

// funcValuer wraps a native closure.
type funcValuer struct {
	fn func(data map[string]any) (any, error)
}

// ValueFunc creates a valuer from a closure.
func ValueFunc(fn func(data map[string]any) (any, error)) Valuer {
	return &funcValuer{fn: fn}
}

func (v *funcValuer) Compile() error { return nil }

func (v *funcValuer) Value(data map[string]any) (any, error) {
	return v.fn(data)
}
