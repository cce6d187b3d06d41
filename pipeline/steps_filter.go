package pipeline

import (
	"context"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// filterStep drops records failing a predicate.
type filterStep struct {
	name      string
	predicate Predicate
}

// Filter drops records for which the predicate is false. Dropped records
// never reach a writer; they are not retried.
func Filter(name string, p Predicate) Step {
	return &filterStep{name: name, predicate: p}
}

func (s *filterStep) Name() string { return s.name }

func (s *filterStep) bind(_ *runtime) error { return s.predicate.Compile() }

func (s *filterStep) Apply(_ context.Context, c *kiln.Context) error {
	ok, err := s.predicate.Eval(c.Data())
	if err != nil {
		return err
	}
	if !ok {
		return ErrFiltered
	}
	return nil
}

// validateStep runs a user validator over the record's columns.
type validateStep struct {
	name string
	fn   func(ctx context.Context, data map[string]any) error
}

// Validate runs a user validator against the record's columns; a returned
// error fails the record.
func Validate(name string, fn func(ctx context.Context, data map[string]any) error) Step {
	return &validateStep{name: name, fn: fn}
}

func (s *validateStep) Name() string { return s.name }

func (s *validateStep) Apply(ctx context.Context, c *kiln.Context) error {
	if err := s.fn(ctx, c.Data()); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	return nil
}
