package ai

import (
	"errors"
	"fmt"
	"time"
)

// ThrottledError signals that the completion service rejected the call for
// rate reasons. RetryAfter carries the server hint when one was present,
// zero otherwise.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("throttled by provider, retry after %s", e.RetryAfter)
	}
	return "throttled by provider"
}

func AsThrottled(err error) (*ThrottledError, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
