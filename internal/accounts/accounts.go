// Package accounts owns the durable, confirmed identities. The
// registration orchestrator creates exactly one account per successful
// verification; the address-uniqueness constraint here is the
// defense-in-depth backstop behind the code-consumption linearization.
package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"enrollgate/internal/registration/models"
	dErrors "enrollgate/pkg/domain-errors"
)

var (
	ErrDuplicate = dErrors.New(dErrors.CodeConflict, "account address already exists")
	ErrNotFound  = dErrors.New(dErrors.CodeNotFound, "account not found")
)

// Account is the confirmed identity created from a verified registration.
type Account struct {
	ID         uuid.UUID
	Address    string
	SecretHash string
	Role       models.Role
	Profile    models.Profile
	CreatedAt  time.Time
}

// Summary converts the account to its caller-facing view.
func (a Account) Summary() models.AccountSummary {
	return models.AccountSummary{
		ID:        a.ID,
		Address:   a.Address,
		Role:      a.Role,
		FirstName: a.Profile.FirstName,
		LastName:  a.Profile.LastName,
	}
}

type Store interface {
	// Exists reports whether a confirmed account owns address.
	Exists(ctx context.Context, address string) (bool, error)
	// Create persists a new account, assigning its ID. A concurrent or
	// prior account on the same address yields ErrDuplicate.
	Create(ctx context.Context, account Account) (Account, error)
	// FindByAddress returns the account owning address, or ErrNotFound.
	FindByAddress(ctx context.Context, address string) (Account, error)
}
