package pipeline

import (
	"context"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// IfElseStep evaluates a condition against the record and splices exactly
// one of two step chains into the execution path. Branches nest to
// arbitrary depth; the compiler qualifies branch step names with
// "<ifelse>/then/" and "<ifelse>/else/" prefixes for diagnostics.
type IfElseStep struct {
	name      string
	condition Predicate
	thenSteps []Step
	elseSteps []Step

	thenChain *chain
	elseChain *chain
}

// IfElse creates a conditional step. Either branch may be empty.
func IfElse(name string, condition Predicate, thenSteps []Step, elseSteps []Step) *IfElseStep {
	return &IfElseStep{
		name:      name,
		condition: condition,
		thenSteps: thenSteps,
		elseSteps: elseSteps,
	}
}

// Name returns the step name.
func (s *IfElseStep) Name() string { return s.name }

// Apply evaluates the condition and runs the chosen branch. A condition
// evaluation error fails the record.
func (s *IfElseStep) Apply(ctx context.Context, c *kiln.Context) error {
	ok, err := s.condition.Eval(c.Data())
	if err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	branch := s.elseChain
	if ok {
		branch = s.thenChain
	}
	return branch.run(ctx, c)
}
