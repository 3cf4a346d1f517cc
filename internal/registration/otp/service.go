// Package otp issues, rate-limits, and validates one-time verification
// codes. It is the security-bearing core of the registration subsystem.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"enrollgate/internal/registration/metrics"
	"enrollgate/internal/registration/models"
	"enrollgate/internal/registration/store/code"
	dErrors "enrollgate/pkg/domain-errors"
)

const codeSpace = 1_000_000 // 6-digit numeric codes

// Config holds the timing and throttling parameters for code issuance.
type Config struct {
	// CodeWindow is the fixed validity window of an issued code.
	CodeWindow time.Duration
	// IssueCeiling is the maximum number of codes issued per address
	// within IssueWindow.
	IssueCeiling int
	// IssueWindow is the trailing interval the ceiling is evaluated over.
	IssueWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		CodeWindow:   10 * time.Minute,
		IssueCeiling: 3,
		IssueWindow:  5 * time.Minute,
	}
}

type Service struct {
	codes   code.Store
	limiter *issueLimiter
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(codes code.Store, cfg Config, opts ...Option) (*Service, error) {
	if codes == nil {
		return nil, errors.New("code store is required")
	}
	if cfg.CodeWindow <= 0 || cfg.IssueCeiling <= 0 || cfg.IssueWindow <= 0 {
		return nil, errors.New("otp config values must be positive")
	}

	svc := &Service{
		codes:   codes,
		limiter: newIssueLimiter(cfg.IssueCeiling, cfg.IssueWindow),
		config:  cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue generates a fresh code for address, invalidating every previously
// issued unconsumed code first. The plaintext code is returned to the
// caller for delivery; it never fails for business reasons.
func (s *Service) Issue(ctx context.Context, address string) (string, error) {
	value, err := generateCode()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}

	if err := s.codes.DeleteUnconsumed(ctx, address); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to invalidate previous codes")
	}

	now := time.Now()
	rec := models.VerificationCode{
		Address:   address,
		Code:      value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.CodeWindow),
	}
	if err := s.codes.Insert(ctx, rec); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist code")
	}

	s.limiter.record(address, now)
	if s.metrics != nil {
		s.metrics.IncrementCodesIssued()
	}
	s.logger.Debug("verification code issued", "address", address, "expires_at", rec.ExpiresAt)
	return value, nil
}

// Validate consumes the live code matching the submission. Negative results
// are ordinary coded errors: ErrCodeInvalid when nothing matches (or the
// code was already consumed), ErrCodeExpired when the match exists but its
// window elapsed.
func (s *Service) Validate(ctx context.Context, address, submitted string) error {
	now := time.Now()
	_, err := s.codes.Consume(ctx, address, submitted, now)
	if err == nil {
		return nil
	}
	if !errors.Is(err, code.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume code")
	}

	// Classify the failure. The consume above stays the single
	// linearization point; this read only picks the error message.
	rec, findErr := s.codes.FindUnconsumed(ctx, address, submitted)
	if findErr == nil && rec.ExpiredAt(now) {
		return models.ErrCodeExpired
	}
	if findErr != nil && !errors.Is(findErr, code.ErrNotFound) {
		return dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to look up code")
	}
	return models.ErrCodeInvalid
}

// CanIssue is the advisory rate-limit gate: it reports whether Issue would
// stay under the ceiling, plus a retry-after hint when it would not. It is
// not atomic with Issue; a concurrent resend storm can slightly overshoot
// the ceiling.
func (s *Service) CanIssue(_ context.Context, address string) (bool, time.Duration) {
	ok, retryAfter := s.limiter.allow(address, time.Now())
	if !ok && s.metrics != nil {
		s.metrics.IncrementRateLimitRejections()
	}
	return ok, retryAfter
}

// SweepExpired removes expired code rows. Invoked by the background
// sweeper.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	return s.codes.SweepExpired(ctx, now)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
