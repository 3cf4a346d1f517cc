// Package httputil centralizes JSON response writing and request decoding
// so every handler emits the same envelopes.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "enrollgate/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. The
// status and code come from the error chain; internal errors omit the
// description so storage details never reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		body.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.HTTPStatus(code), body)
}

// Preparer is a request body that can normalize and validate itself.
type Preparer interface {
	Normalize()
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, normalizes it, and
// validates it. On failure it writes the error response and returns false.
func DecodeAndPrepare[T any, P interface {
	*T
	Preparer
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "invalid request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return nil, false
	}

	p := P(&req)
	p.Normalize()
	if err := p.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
