package models

import (
	"time"

	dErrors "gatekeeper/pkg/domain-errors"
)

// Decision is a pure computed value describing a rate-limit outcome.
// It is returned to the caller and never persisted.
type Decision struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// AttemptRecord tracks authentication attempts for one client identity.
// It is owned exclusively by the rate limiter; the identity is an opaque
// key (derived from a network address) and is never parsed.
type AttemptRecord struct {
	Identity     string     `json:"identity"`
	Attempts     int        `json:"attempts"`
	WindowStart  time.Time  `json:"window_start"`
	LastAttempt  time.Time  `json:"last_attempt"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

// NewAttemptRecord creates a record for the first observed attempt.
func NewAttemptRecord(identity string, now time.Time) (*AttemptRecord, error) {
	if identity == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}
	return &AttemptRecord{
		Identity:    identity,
		Attempts:    1,
		WindowStart: now,
		LastAttempt: now,
	}, nil
}

// IsBlocked reports whether the identity is within an active block.
func (r *AttemptRecord) IsBlocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// WindowExpired reports whether the counting window has elapsed.
func (r *AttemptRecord) WindowExpired(now time.Time, window time.Duration) bool {
	return now.Sub(r.WindowStart) > window
}

// RateLimitedError carries a denying decision across service boundaries so
// the transport layer can emit Retry-After and quota headers. It satisfies
// errors.Is against the rate_limited domain code.
type RateLimitedError struct {
	Decision *Decision
}

func (e *RateLimitedError) Error() string {
	return "rate limited"
}

func (e *RateLimitedError) Unwrap() error {
	return dErrors.New(dErrors.CodeRateLimited, "rate limited")
}
