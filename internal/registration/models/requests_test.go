package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "enrollgate/pkg/domain-errors"
)

func validInitiate() InitiateRequest {
	return InitiateRequest{
		Address: "jane.doe@example.com",
		Secret:  "Secret123",
		Role:    RolePatient,
		Profile: Profile{FirstName: "Jane"},
	}
}

func TestInitiateRequestNormalize(t *testing.T) {
	req := InitiateRequest{
		Address: "  Jane.Doe@Example.COM ",
		Role:    "Patient",
		Profile: Profile{FirstName: " Jane ", Phone: " 555-0101 "},
	}
	req.Normalize()

	assert.Equal(t, "jane.doe@example.com", req.Address)
	assert.Equal(t, RolePatient, req.Role)
	assert.Equal(t, "Jane", req.Profile.FirstName)
	assert.Equal(t, "555-0101", req.Profile.Phone)
}

func TestInitiateRequestValidate(t *testing.T) {
	t.Run("valid patient", func(t *testing.T) {
		req := validInitiate()
		assert.NoError(t, req.Validate())
	})

	t.Run("bad address", func(t *testing.T) {
		req := validInitiate()
		req.Address = "not-an-email"
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("short secret", func(t *testing.T) {
		req := validInitiate()
		req.Secret = "short"
		assert.Error(t, req.Validate())
	})

	t.Run("unknown role", func(t *testing.T) {
		req := validInitiate()
		req.Role = "dentist"
		assert.Error(t, req.Validate())
	})

	t.Run("missing first name", func(t *testing.T) {
		req := validInitiate()
		req.Profile.FirstName = ""
		assert.Error(t, req.Validate())
	})

	t.Run("practitioner requires specialization and license", func(t *testing.T) {
		req := validInitiate()
		req.Role = RolePractitioner
		assert.Error(t, req.Validate())

		req.Profile.Specialization = "orthodontics"
		assert.Error(t, req.Validate())

		req.Profile.LicenseNumber = "LIC-42"
		assert.NoError(t, req.Validate())
	})
}

func TestVerifyRequestValidate(t *testing.T) {
	req := VerifyRequest{Address: "jane@example.com", Code: "123456"}
	assert.NoError(t, req.Validate())

	req.Code = "12345"
	assert.Error(t, req.Validate())

	req.Code = "12345a"
	assert.Error(t, req.Validate())

	req = VerifyRequest{Address: "nope", Code: "123456"}
	assert.Error(t, req.Validate())
}

func TestVerifyRequestNormalizeTrimsCode(t *testing.T) {
	req := VerifyRequest{Address: "JANE@example.com", Code: " 123456 "}
	req.Normalize()
	assert.Equal(t, "jane@example.com", req.Address)
	assert.Equal(t, "123456", req.Code)
}

func TestPendingRegistrationExpiredAt(t *testing.T) {
	rec := PendingRegistration{}
	rec.ExpiresAt = rec.CreatedAt.Add(1)
	assert.False(t, rec.ExpiredAt(rec.CreatedAt))
	assert.True(t, rec.ExpiredAt(rec.ExpiresAt))
}
