package anthropic

import (
	"errors"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	kiln "github.com/spetersoncode/kiln"
)

// wrapError categorizes an Anthropic SDK error for retry handling.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	code := apiErr.StatusCode
	msg := apiErr.Error()

	switch {
	case code == 429 || code == 529 || (code >= 500 && code < 529):
		if after := retryAfter(apiErr); after > 0 {
			return kiln.NewTransientErrorWithRetry(msg, code, after, err)
		}
		return kiln.NewTransientError(msg, code, err)
	case code == 401 || code == 403:
		return kiln.NewPermanentError(msg, code, err)
	case code == 400 || code == 404 || code == 422:
		return kiln.NewUserInputError(msg, code, err)
	default:
		return kiln.NewPermanentError(msg, code, err)
	}
}

func retryAfter(apiErr *anthropic.Error) time.Duration {
	if apiErr.Response == nil {
		return 0
	}
	header := apiErr.Response.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
