// Package handler wires the registration endpoints to the orchestrator.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"enrollgate/internal/platform/middleware"
	"enrollgate/internal/registration/models"
	"enrollgate/pkg/platform/httputil"
)

// Service defines the interface for registration operations.
type Service interface {
	Initiate(ctx context.Context, req *models.InitiateRequest) (*models.InitiateResult, error)
	Resend(ctx context.Context, req *models.ResendRequest) (*models.InitiateResult, error)
	Verify(ctx context.Context, req *models.VerifyRequest) (*models.VerifyResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the registration routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	authRouter := chi.NewRouter()
	authRouter.Use(middleware.Recovery(h.logger))
	authRouter.Use(middleware.RequestID)
	authRouter.Use(middleware.Logger(h.logger))
	authRouter.Use(middleware.Timeout(30 * time.Second))
	authRouter.Use(middleware.ContentTypeJSON)
	authRouter.Post("/auth/register", h.handleInitiate)
	authRouter.Post("/auth/register/verify", h.handleVerify)
	authRouter.Post("/auth/register/resend", h.handleResend)
	authRouter.Post("/auth/login", h.handleLogin)
	authRouter.Post("/auth/refresh", h.handleRefresh)

	r.Mount("/", authRouter)
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[models.InitiateRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Initiate(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, "registration initiate failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, result)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[models.VerifyRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, "registration verify failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[models.ResendRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Resend(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, "registration resend failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, result)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, "login failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[refreshRequest](w, r, h.logger)
	if !ok {
		return
	}

	access, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.writeServiceError(w, r, "token refresh failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}

// writeServiceError logs the failure and translates it to the JSON error
// envelope, attaching Retry-After when the limiter set a hint.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)

	var rateLimited *models.RateLimitedError
	if errors.As(err, &rateLimited) && rateLimited.RetryAfter > 0 {
		seconds := int(rateLimited.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	httputil.WriteError(w, err)
}
