package pipeline

import "fmt"

// compile flattens the declared step tree into addressable chains. Every
// step gets a stable full name of the form "<name>--<index>"; steps inside
// IfElse branches are prefixed with "<parent>/then/" or "<parent>/else/".
// Names must be unique across the whole tree. Each step's bind runs here,
// so expression parsing, DSL compilation, and reference resolution fail
// the build instead of the run.
func compile(rt *runtime, steps []Step) (*chain, error) {
	seen := make(map[string]struct{})
	return compileChain(rt, steps, "", seen)
}

func compileChain(rt *runtime, steps []Step, prefix string, seen map[string]struct{}) (*chain, error) {
	ch := &chain{rt: rt}
	for i, s := range steps {
		full := fmt.Sprintf("%s%s--%d", prefix, s.Name(), i)
		if _, dup := seen[full]; dup {
			return nil, &CompileError{Step: full, Err: fmt.Errorf("duplicate step name")}
		}
		seen[full] = struct{}{}

		if ie, ok := s.(*IfElseStep); ok {
			if err := compileIfElse(rt, ie, full, seen); err != nil {
				return nil, err
			}
		} else if bs, ok := s.(binder); ok {
			if err := bs.bind(rt); err != nil {
				return nil, &CompileError{Step: full, Err: err}
			}
		}

		ch.steps = append(ch.steps, compiledStep{full: full, step: s})
	}
	return ch, nil
}

func compileIfElse(rt *runtime, ie *IfElseStep, full string, seen map[string]struct{}) error {
	if ie.condition == nil {
		return &CompileError{Step: full, Err: fmt.Errorf("no condition")}
	}
	if err := ie.condition.Compile(); err != nil {
		return &CompileError{Step: full, Err: err}
	}

	thenChain, err := compileChain(rt, ie.thenSteps, full+"/then/", seen)
	if err != nil {
		return err
	}
	elseChain, err := compileChain(rt, ie.elseSteps, full+"/else/", seen)
	if err != nil {
		return err
	}

	ie.thenChain = thenChain
	ie.elseChain = elseChain
	return nil
}
