package kiln

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       *Error
		category  ErrorCategory
		retryable bool
	}{
		{"transient", NewTransientError("rate limited", 429, cause), ErrorTransient, true},
		{"permanent", NewPermanentError("bad key", 401, cause), ErrorPermanent, false},
		{"user input", NewUserInputError("bad request", 400, cause), ErrorUserInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.Equal(t, tt.retryable, tt.err.Retryable())
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewPermanentError("model not found", 404, errors.New("404"))
	assert.Equal(t, "model not found: 404", err.Error())

	bare := &Error{Msg: "no cause", Cat: ErrorPermanent}
	assert.Equal(t, "no cause", bare.Error())
}

func TestCategoryHelpers(t *testing.T) {
	transient := NewTransientError("overloaded", 529, nil)
	wrapped := fmt.Errorf("generate: %w", transient)

	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsPermanent(wrapped))
	assert.Equal(t, 529, StatusCodeOf(wrapped))

	assert.False(t, IsTransient(errors.New("plain")))
	assert.Equal(t, 0, StatusCodeOf(errors.New("plain")))
}

func TestRetryAfterOf(t *testing.T) {
	err := NewTransientErrorWithRetry("rate limited", 429, 3*time.Second, nil)
	wrapped := fmt.Errorf("call: %w", err)

	assert.Equal(t, 3*time.Second, RetryAfterOf(wrapped))
	assert.Zero(t, RetryAfterOf(errors.New("plain")))
}
