package persona

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/submind/llm"
	"github.com/BaSui01/submind/types"
)

var (
	// ErrEmptyResponse is the cause when the gateway returned only whitespace.
	ErrEmptyResponse = errors.New("empty response")
	// ErrTimeout is the cause when the persona's own call deadline expired.
	ErrTimeout = errors.New("generation timed out")
)

// GenerationError reports that a persona could not produce a message.
type GenerationError struct {
	PersonaID string
	// Models lists every model that was attempted, in order.
	Models []string
	Cause  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("persona %s: generation failed: %v", e.PersonaID, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// Timeout reports whether the failure was a deadline on the call.
func (e *GenerationError) Timeout() bool {
	if errors.Is(e.Cause, ErrTimeout) || errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var le *llm.Error
	return errors.As(e.Cause, &le) && le.Code == llm.ErrUpstreamTimeout
}

// Retryable reports whether another attempt could succeed.
func (e *GenerationError) Retryable() bool {
	if errors.Is(e.Cause, context.Canceled) {
		return false
	}
	return e.Timeout() || llm.IsRetryable(e.Cause)
}

// ToError converts the failure into the service error envelope.
func (e *GenerationError) ToError() *types.Error {
	status := 502
	if e.Timeout() {
		status = 504
	}
	te := types.NewError(types.ErrGeneration, fmt.Sprintf("persona %s failed to respond", e.PersonaID)).
		WithCause(e.Cause).
		WithHTTPStatus(status).
		WithRetryable(e.Retryable())
	var le *llm.Error
	if errors.As(e.Cause, &le) {
		te.WithProvider(le.Provider)
	}
	return te
}
