// Package service drives the two-phase registration flow:
// stage → notify → verify → finalize. It owns the pending store exclusively
// and composes the OTP service, the account collaborator, the notification
// dispatcher, and the credential issuer.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"enrollgate/internal/accounts"
	"enrollgate/internal/registration/metrics"
	"enrollgate/internal/registration/models"
	"enrollgate/internal/registration/notify"
	"enrollgate/internal/registration/store/pending"
	"enrollgate/internal/token"
	dErrors "enrollgate/pkg/domain-errors"
	"enrollgate/pkg/email"
)

// CodeService is the slice of the OTP service the orchestrator uses.
type CodeService interface {
	Issue(ctx context.Context, address string) (string, error)
	Validate(ctx context.Context, address, submitted string) error
	CanIssue(ctx context.Context, address string) (bool, time.Duration)
}

// Dispatcher hands a notification to the background delivery worker.
type Dispatcher interface {
	Enqueue(msg notify.Message)
}

type Service struct {
	pending    pending.Store
	codes      CodeService
	accounts   accounts.Store
	dispatcher Dispatcher
	tokens     *token.Issuer
	pendingTTL time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(
	pendingStore pending.Store,
	codes CodeService,
	accountStore accounts.Store,
	dispatcher Dispatcher,
	tokens *token.Issuer,
	pendingTTL time.Duration,
	opts ...Option,
) (*Service, error) {
	if pendingStore == nil {
		return nil, errors.New("pending store is required")
	}
	if codes == nil {
		return nil, errors.New("code service is required")
	}
	if accountStore == nil {
		return nil, errors.New("account store is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if pendingTTL <= 0 {
		return nil, errors.New("pending TTL must be positive")
	}

	svc := &Service{
		pending:    pendingStore,
		codes:      codes,
		accounts:   accountStore,
		dispatcher: dispatcher,
		tokens:     tokens,
		pendingTTL: pendingTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Initiate stages a signup attempt and sends the first code. A repeat call
// for the same address overwrites the previous attempt.
func (s *Service) Initiate(ctx context.Context, req *models.InitiateRequest) (*models.InitiateResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.accounts.Exists(ctx, req.Address)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check address")
	}
	if exists {
		return nil, models.ErrDuplicateAddress
	}

	if ok, retryAfter := s.codes.CanIssue(ctx, req.Address); !ok {
		return nil, models.NewRateLimited(retryAfter)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
	}

	rec := models.PendingRegistration{
		Address:    req.Address,
		SecretHash: string(hash),
		Role:       req.Role,
		Profile:    req.Profile,
	}
	if err := s.pending.Put(ctx, rec, s.pendingTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage registration")
	}

	codeValue, err := s.codes.Issue(ctx, req.Address)
	if err != nil {
		return nil, err
	}

	s.dispatch(rec, codeValue)
	s.logger.Info("registration initiated", "address", req.Address, "role", req.Role)

	return &models.InitiateResult{
		Address: req.Address,
		Message: "verification code sent",
	}, nil
}

// Resend issues a fresh code for a staged attempt, invalidating the prior
// one. The pending registration's own TTL is left untouched.
func (s *Service) Resend(ctx context.Context, req *models.ResendRequest) (*models.InitiateResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.pending.Get(ctx, req.Address)
	if err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			return nil, models.ErrNoPendingAttempt
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending registration")
	}

	if ok, retryAfter := s.codes.CanIssue(ctx, req.Address); !ok {
		return nil, models.NewRateLimited(retryAfter)
	}

	codeValue, err := s.codes.Issue(ctx, req.Address)
	if err != nil {
		return nil, err
	}

	s.dispatch(rec, codeValue)
	s.logger.Info("verification code resent", "address", req.Address)

	return &models.InitiateResult{
		Address: req.Address,
		Message: "verification code sent",
	}, nil
}

// Verify proves address ownership and finalizes the account. Code failures
// leave the staged attempt intact so the user can retry; a missing staged
// attempt reads as an expired session. The code-consumption step guarantees
// at most one concurrent caller reaches account creation per address.
func (s *Service) Verify(ctx context.Context, req *models.VerifyRequest) (*models.VerifyResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.pending.Get(ctx, req.Address)
	if err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			s.countVerification(metrics.OutcomeSessionExpired)
			return nil, models.ErrSessionExpired
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending registration")
	}

	if err := s.codes.Validate(ctx, req.Address, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrCodeExpired):
			s.countVerification(metrics.OutcomeCodeExpired)
		case errors.Is(err, models.ErrCodeInvalid):
			s.countVerification(metrics.OutcomeCodeInvalid)
		}
		return nil, err
	}

	account, err := s.accounts.Create(ctx, accounts.Account{
		Address:    rec.Address,
		SecretHash: rec.SecretHash,
		Role:       rec.Role,
		Profile:    rec.Profile,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicate) {
			// Staged-twice race: another attempt already owns the
			// address. The uniqueness constraint is the backstop.
			return nil, models.ErrDuplicateAddress
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	if err := s.pending.Delete(ctx, req.Address); err != nil {
		// The account exists; a stale staged record is sweep fodder.
		s.logger.Warn("failed to delete pending registration after verify",
			"address", req.Address, "error", err)
	}

	pair, err := s.tokens.IssuePair(account.ID, account.Role)
	if err != nil {
		return nil, err
	}

	s.countVerification(metrics.OutcomeSuccess)
	s.logger.Info("registration verified", "address", req.Address, "account_id", account.ID)

	return &models.VerifyResult{
		Tokens:  pair,
		Account: account.Summary(),
	}, nil
}

// Login is the plain path for confirmed accounts: lookup, compare, sign.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByAddress(ctx, req.Address)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, models.ErrBadCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.SecretHash), []byte(req.Secret)); err != nil {
		return nil, models.ErrBadCredentials
	}

	pair, err := s.tokens.IssuePair(account.ID, account.Role)
	if err != nil {
		return nil, err
	}

	return &models.LoginResult{
		Tokens:  pair,
		Account: account.Summary(),
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token.
func (s *Service) Refresh(_ context.Context, refreshToken string) (string, error) {
	return s.tokens.Refresh(refreshToken)
}

func (s *Service) dispatch(rec models.PendingRegistration, codeValue string) {
	s.dispatcher.Enqueue(notify.Message{
		Address:     rec.Address,
		Code:        codeValue,
		DisplayName: email.DisplayName(rec.Address, rec.Profile.FirstName, rec.Profile.LastName),
	})
}

func (s *Service) countVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementVerification(outcome)
	}
}
