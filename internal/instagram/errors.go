package instagram

import "errors"

// Error kinds the dispatch loop switches on. Wrapped with context by the
// client; match with errors.Is.
var (
	// ErrAuth means the session is invalid or expired. Recoverable by
	// re-login when a password is available.
	ErrAuth = errors.New("instagram: session invalid")

	// ErrRateLimited means the platform flagged our traffic. Canonical
	// handling is a 50 second backoff before the next poll.
	ErrRateLimited = errors.New("instagram: rate limited")

	// ErrMalformed means the payload could not be parsed. The current cycle
	// is abandoned, not fatal.
	ErrMalformed = errors.New("instagram: malformed response")
)

// RateLimitBackoff is the canonical wait after ErrRateLimited, in seconds.
const RateLimitBackoff = 50
