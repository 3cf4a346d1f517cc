// Package code persists one-time verification codes. Consumption is a
// single conditional update so concurrent validations of the same code have
// exactly one winner.
package code

import (
	"context"
	"time"

	"enrollgate/internal/registration/models"
	dErrors "enrollgate/pkg/domain-errors"
)

// ErrNotFound is returned when no row satisfies the operation's condition.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "verification code not found")

type Store interface {
	// Insert persists a freshly issued code row.
	Insert(ctx context.Context, rec models.VerificationCode) error
	// DeleteUnconsumed removes every unconsumed row for address. Issue
	// calls this first so no two codes are simultaneously valid.
	DeleteUnconsumed(ctx context.Context, address string) error
	// Consume atomically marks the matching live row consumed and returns
	// it. The match (address, code, unconsumed, unexpired) and the write
	// are one operation with respect to the backing store; a row that is
	// missing, already consumed, or expired yields ErrNotFound.
	Consume(ctx context.Context, address, code string, now time.Time) (models.VerificationCode, error)
	// FindUnconsumed returns the most recent unconsumed row matching
	// address and code regardless of expiry. Used only to classify a
	// failed Consume as expired versus invalid.
	FindUnconsumed(ctx context.Context, address, code string) (models.VerificationCode, error)
	// SweepExpired deletes rows whose expiry elapsed and reports the count.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
