package models

import (
	"fmt"
	"time"

	dErrors "enrollgate/pkg/domain-errors"
)

// Sentinel domain errors surfaced by the registration flow. Transports map
// them to statuses through their codes; the two code errors carry distinct
// messages so the UI can say "wrong code" versus "request a new one".
var (
	ErrDuplicateAddress = dErrors.New(dErrors.CodeConflict, "address already registered")
	ErrRateLimited      = dErrors.New(dErrors.CodeRateLimited, "too many codes requested")
	ErrNoPendingAttempt = dErrors.New(dErrors.CodeNotFound, "no pending registration for address")
	ErrSessionExpired   = dErrors.New(dErrors.CodeExpired, "registration session expired")
	ErrCodeInvalid      = dErrors.New(dErrors.CodeUnauthorized, "incorrect verification code")
	ErrCodeExpired      = dErrors.New(dErrors.CodeUnauthorized, "verification code expired")
	ErrBadCredentials   = dErrors.New(dErrors.CodeUnauthorized, "invalid address or secret")
)

// RateLimitedError carries the back-off hint alongside the throttling
// error. errors.Is(err, ErrRateLimited) holds through Unwrap.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many codes requested, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

func NewRateLimited(retryAfter time.Duration) error {
	return &RateLimitedError{RetryAfter: retryAfter}
}
