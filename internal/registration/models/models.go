// Package models holds the registration domain entities and the
// request/result shapes exchanged with the transport layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the account role selected at signup.
type Role string

const (
	RolePatient      Role = "patient"
	RolePractitioner Role = "practitioner"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePractitioner, RoleAdmin:
		return true
	}
	return false
}

// Profile carries the optional signup fields staged alongside the secret.
// Specialization and license number only apply to practitioners.
type Profile struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization,omitempty"`
	LicenseNumber  string `json:"license_number,omitempty"`
}

// PendingRegistration is a signup attempt not yet proven to own its contact
// address. At most one live record exists per address; a new Initiate for
// the same address overwrites the previous one.
type PendingRegistration struct {
	Address    string    `json:"address"`
	SecretHash string    `json:"secret_hash"`
	Role       Role      `json:"role"`
	Profile    Profile   `json:"profile"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the record's TTL has elapsed at the given
// instant. Expired-but-not-yet-swept records must read as absent.
func (p PendingRegistration) ExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// VerificationCode is a single-use, time-bounded proof of address
// ownership. Consumption is the linearization point for concurrent
// verification attempts.
type VerificationCode struct {
	Address   string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Consumed  bool
	// AccountID links codes issued to an already-existing account. The
	// signup path leaves it nil.
	AccountID *uuid.UUID
}

func (c VerificationCode) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// AccountSummary is the caller-facing view of a freshly created account.
type AccountSummary struct {
	ID        uuid.UUID `json:"id"`
	Address   string    `json:"address"`
	Role      Role      `json:"role"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
}

// TokenPair is the signed session credential pair minted after a successful
// verification or login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
