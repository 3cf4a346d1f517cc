package handler

import (
	"strings"

	dErrors "enrollgate/pkg/domain-errors"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *refreshRequest) Normalize() {
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
}

func (r *refreshRequest) Validate() error {
	if r.RefreshToken == "" {
		return dErrors.New(dErrors.CodeValidation, "refresh token is required")
	}
	return nil
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}
