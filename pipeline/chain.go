package pipeline

import (
	"context"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// compiledStep is a step plus the unique full name the compiler assigned it
// ("<name>--<index>", prefixed with its branch path inside IfElse).
type compiledStep struct {
	full string
	step Step
}

// chain is an ordered, compiled step sequence. It executes steps in
// declaration order and stops at the first step that fails the record.
type chain struct {
	rt    *runtime
	steps []compiledStep
}

// run drives one record through the chain. Per-record failures mark the
// Context failed and return nil; only infrastructure errors propagate.
func (ch *chain) run(ctx context.Context, c *kiln.Context) error {
	for _, cs := range ch.steps {
		if c.Failed() {
			return nil
		}
		if err := applyStep(ctx, cs.step, c); err != nil {
			if IsInfrastructure(err) {
				return &StepError{Step: cs.full, Err: err}
			}
			ch.rt.logger.Warn("step failed",
				"pipeline", ch.rt.pipeline,
				"step", cs.full,
				"index", c.Index(),
				"error", err)
			c.Fail()
			ch.rt.emit(Event{
				Type:  StepFailed,
				RunID: ch.rt.runID,
				Step:  cs.full,
				Index: c.Index(),
				Err:   &StepError{Step: cs.full, Err: err},
			})
			return nil
		}
	}
	return nil
}

// applyStep invokes one step with panic isolation: a panic in user code
// fails the record, never the worker.
func applyStep(ctx context.Context, s Step, c *kiln.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Apply(ctx, c)
}
