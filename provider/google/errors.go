package google

import (
	"errors"

	"google.golang.org/genai"

	kiln "github.com/spetersoncode/kiln"
)

// wrapError categorizes a Google GenAI error for retry handling. The SDK
// does not expose response headers, so no Retry-After hint is available.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	code := apiErr.Code
	msg := err.Error()

	switch {
	case code == 429 || (code >= 500 && code < 600):
		return kiln.NewTransientError(msg, code, err)
	case code == 401 || code == 403:
		return kiln.NewPermanentError(msg, code, err)
	case code == 400 || code == 404 || code == 422:
		return kiln.NewUserInputError(msg, code, err)
	default:
		return kiln.NewPermanentError(msg, code, err)
	}
}
