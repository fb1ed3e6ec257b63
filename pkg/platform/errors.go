package platform

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure classes the core branches on.
// Transport adapters translate raw platform errors into these; call
// sites test with errors.Is and never parse error prose.
var (
	// ErrNotFound covers every "the referenced message/topic/chat no
	// longer resolves or cannot be modified" failure. The stored id is
	// stale; recovery is to forget it and recreate.
	ErrNotFound = errors.New("target not found or not modifiable")

	// ErrNotModified means an edit was a no-op: the content already
	// matches. Not a failure, but callers must not fall back to
	// creating a replacement message.
	ErrNotModified = errors.New("message is not modified")

	// ErrForbidden means the bot lacks the chat privileges for the
	// operation. Recovery is to skip and retry on the next trigger.
	ErrForbidden = errors.New("insufficient chat permissions")
)

// RateLimitedError is returned when the platform throttles us and names
// how long to wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// AsRateLimited extracts the wait duration if err is (or wraps) a
// rate-limit signal.
func AsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
