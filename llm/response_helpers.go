package llm

import (
	"errors"
	"fmt"
	"strings"
)

// FirstChoice safely returns the first choice from a ChatResponse.
// Returns an error if the response is nil or has no choices.
func FirstChoice(resp *ChatResponse) (ChatChoice, error) {
	if resp == nil {
		return ChatChoice{}, fmt.Errorf("nil ChatResponse")
	}
	if len(resp.Choices) == 0 {
		return ChatChoice{}, fmt.Errorf("empty choices in ChatResponse (model returned no choices)")
	}
	return resp.Choices[0], nil
}

// IsRateLimited reports whether err means the upstream refused the call for
// rate or quota reasons. Typed errors are checked by code, anything else by
// its message text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var le *Error
	if errors.As(err, &le) {
		if le.Code == ErrRateLimited || le.Code == ErrQuotaExceeded || le.HTTPStatus == 429 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{"rate limit", "rate_limit", "ratelimit", "quota", "too many requests", "429"} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether a completion error is worth another attempt.
func IsRetryable(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}
