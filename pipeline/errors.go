package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSource indicates Build was called without IterRange or
	// IterDataset.
	ErrNoSource = errors.New("pipeline: no source configured")

	// ErrNoState indicates a step needs the state store but State was not
	// configured on the builder.
	ErrNoState = errors.New("pipeline: state store required")

	// ErrDuplicate is the cause recorded when a dedup check drops a record.
	ErrDuplicate = errors.New("pipeline: duplicate record")

	// ErrFiltered is the cause recorded when a filter predicate drops a
	// record.
	ErrFiltered = errors.New("pipeline: record filtered")
)

// CompileError reports a configuration problem found while compiling the
// pipeline. It is fatal: Build fails before any record is processed.
type CompileError struct {
	Step string // full compiled step name, empty for builder-level problems
	Err  error
}

func (e *CompileError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("pipeline: compile step %q: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("pipeline: compile: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// StepError wraps a per-record failure with the step that caused it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline: step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// InfrastructureError marks a failure that must abort the run instead of
// dropping one record: the state store or an output sink is broken.
type InfrastructureError struct {
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("pipeline: infrastructure: %v", e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// infra wraps err as an InfrastructureError, preserving nil.
func infra(err error) error {
	if err == nil {
		return nil
	}
	return &InfrastructureError{Err: err}
}

// IsInfrastructure reports whether err (or any wrapped error) aborts the run.
func IsInfrastructure(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
