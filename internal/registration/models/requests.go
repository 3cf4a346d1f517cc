package models

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "enrollgate/pkg/domain-errors"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// InitiateRequest starts a registration attempt.
type InitiateRequest struct {
	Address string  `json:"address"`
	Secret  string  `json:"secret"`
	Role    Role    `json:"role"`
	Profile Profile `json:"profile"`
}

func (r *InitiateRequest) Normalize() {
	r.Address = normalizeAddress(r.Address)
	r.Role = Role(strings.ToLower(strings.TrimSpace(string(r.Role))))
	r.Profile.FirstName = strings.TrimSpace(r.Profile.FirstName)
	r.Profile.LastName = strings.TrimSpace(r.Profile.LastName)
	r.Profile.Phone = strings.TrimSpace(r.Profile.Phone)
	r.Profile.Specialization = strings.TrimSpace(r.Profile.Specialization)
	r.Profile.LicenseNumber = strings.TrimSpace(r.Profile.LicenseNumber)
}

func (r *InitiateRequest) Validate() error {
	if err := validateAddress(r.Address); err != nil {
		return err
	}
	if !govalidator.StringLength(r.Secret, "8", "128") {
		return dErrors.New(dErrors.CodeValidation, "secret must be between 8 and 128 characters")
	}
	if !r.Role.Valid() {
		return dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	if r.Profile.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first name is required")
	}
	if r.Profile.Phone != "" && !govalidator.StringLength(r.Profile.Phone, "5", "20") {
		return dErrors.New(dErrors.CodeValidation, "invalid phone number")
	}
	if r.Role == RolePractitioner {
		if r.Profile.Specialization == "" {
			return dErrors.New(dErrors.CodeValidation, "specialization is required for practitioners")
		}
		if r.Profile.LicenseNumber == "" {
			return dErrors.New(dErrors.CodeValidation, "license number is required for practitioners")
		}
	}
	return nil
}

// VerifyRequest submits a one-time code for a staged address.
type VerifyRequest struct {
	Address string `json:"address"`
	Code    string `json:"code"`
}

func (r *VerifyRequest) Normalize() {
	r.Address = normalizeAddress(r.Address)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyRequest) Validate() error {
	if err := validateAddress(r.Address); err != nil {
		return err
	}
	if !codePattern.MatchString(r.Code) {
		return dErrors.New(dErrors.CodeValidation, "code must be 6 digits")
	}
	return nil
}

// ResendRequest asks for a fresh code for a staged address.
type ResendRequest struct {
	Address string `json:"address"`
}

func (r *ResendRequest) Normalize() {
	r.Address = normalizeAddress(r.Address)
}

func (r *ResendRequest) Validate() error {
	return validateAddress(r.Address)
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Address string `json:"address"`
	Secret  string `json:"secret"`
}

func (r *LoginRequest) Normalize() {
	r.Address = normalizeAddress(r.Address)
}

func (r *LoginRequest) Validate() error {
	if err := validateAddress(r.Address); err != nil {
		return err
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeValidation, "secret is required")
	}
	return nil
}

// InitiateResult echoes the staged address back to the caller.
type InitiateResult struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

// VerifyResult carries the minted credentials and the created account.
type VerifyResult struct {
	Tokens  TokenPair      `json:"tokens"`
	Account AccountSummary `json:"account"`
}

// LoginResult mirrors VerifyResult for the plain login path.
type LoginResult struct {
	Tokens  TokenPair      `json:"tokens"`
	Account AccountSummary `json:"account"`
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func validateAddress(address string) error {
	if !govalidator.StringLength(address, "3", "255") || !govalidator.IsEmail(address) {
		return dErrors.New(dErrors.CodeValidation, "invalid contact address")
	}
	return nil
}
