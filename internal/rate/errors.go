package rate

import "errors"

var (
	// ErrRateLimited is returned by Check once the attempt budget for an identifier is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps backend failures of the counter store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
