// Package pending stages unconfirmed signup attempts keyed by contact
// address. Records are ephemeral: lost on restart by design, since the flow
// is short-lived and restartable by the user.
package pending

import (
	"context"
	"time"

	"enrollgate/internal/registration/models"
	dErrors "enrollgate/pkg/domain-errors"
)

// ErrNotFound is returned when no live record exists for an address. An
// expired-but-not-yet-swept record reads as absent.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "pending registration not found")

// Store is the staging interface the orchestrator owns exclusively.
type Store interface {
	// Put inserts or overwrites the record for its address with an
	// absolute expiry of now + ttl.
	Put(ctx context.Context, rec models.PendingRegistration, ttl time.Duration) error
	// Get returns the live record for address, or ErrNotFound.
	Get(ctx context.Context, address string) (models.PendingRegistration, error)
	// Delete removes the record if present. Idempotent.
	Delete(ctx context.Context, address string) error
	// SweepExpired removes all records whose expiry has elapsed and
	// returns how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
