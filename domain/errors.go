package domain

import "errors"

// Rental errors
var (
	ErrSessionNotFound    = errors.New("rental session not found")
	ErrNotSessionOwner    = errors.New("rental session belongs to another user")
	ErrUnknownServiceType = errors.New("unknown service type")
	ErrRateLimited        = errors.New("too many rental starts, slow down")
)

// Ledger errors
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrVersionConflict     = errors.New("account version conflict")
	ErrDuplicateRefund     = errors.New("refund already recorded for session")
)

// Session store errors
var (
	// ErrStatusConflict signals that another path already transitioned the
	// session. It is the expected loser-side outcome of the guarded
	// compare-and-set and is never surfaced to end users.
	ErrStatusConflict    = errors.New("session status changed concurrently")
	ErrInvalidTransition = errors.New("invalid session status transition")
)

// Provider errors
var (
	ErrNoNumbersAvailable  = errors.New("no numbers available upstream")
	ErrProviderRateLimited = errors.New("provider rate limited")
	ErrUpstreamTimeout     = errors.New("provider request timed out")
)

// Scheduler errors
var (
	ErrSweepInProgress = errors.New("auto-refund sweep already running")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// IsProviderError reports whether err is one of the upstream provider
// failures that map to a 502 at the HTTP boundary.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrNoNumbersAvailable) ||
		errors.Is(err, ErrProviderRateLimited) ||
		errors.Is(err, ErrUpstreamTimeout)
}
