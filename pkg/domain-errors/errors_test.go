package derrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeConflict, "address already registered")
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
	assert.False(t, HasCode(nil, CodeConflict))
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "code store unavailable")

	require.Error(t, err)
	assert.True(t, HasCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestWrapPreservesChain(t *testing.T) {
	inner := New(CodeNotFound, "record not found")
	outer := Wrap(fmt.Errorf("lookup: %w", inner), CodeInternal, "pending lookup failed")

	// Outermost code wins for classification.
	assert.Equal(t, CodeInternal, CodeOf(outer))
	assert.True(t, HasCode(errors.Unwrap(errors.Unwrap(outer)), CodeNotFound))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeRateLimited, CodeOf(New(CodeRateLimited, "slow down")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("anything")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "slow down", MessageOf(New(CodeRateLimited, "slow down")))
	assert.Equal(t, "internal error", MessageOf(errors.New("pg: duplicate key")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeInvalidInput: http.StatusBadRequest,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeRateLimited:  http.StatusTooManyRequests,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeExpired:      http.StatusGone,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
