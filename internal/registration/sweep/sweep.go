// Package sweep removes expired pending registrations and verification
// codes in the background. Reads already treat expired records as absent;
// the sweeper only reclaims storage.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"enrollgate/internal/registration/metrics"
	"enrollgate/internal/registration/store/pending"
)

// CodeSweeper is the slice of the OTP service the sweeper drives.
type CodeSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type Sweeper struct {
	pending  pending.Store
	codes    CodeSweeper
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func New(pendingStore pending.Store, codes CodeSweeper, interval time.Duration, opts ...Option) (*Sweeper, error) {
	if pendingStore == nil {
		return nil, errors.New("pending store is required")
	}
	if codes == nil {
		return nil, errors.New("code sweeper is required")
	}
	if interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}

	sw := &Sweeper{
		pending:  pendingStore,
		codes:    codes,
		interval: interval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw, nil
}

// Run sweeps on a fixed interval until ctx is cancelled. Individual sweep
// failures are logged and the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx, time.Now())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SweepOnce runs a single pass over both stores. Exported for testability;
// Run passes wall-clock time.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) {
	removedPending, err := s.pending.SweepExpired(ctx, now)
	if err != nil {
		s.logger.Error("pending sweep failed", "error", err)
	} else if removedPending > 0 {
		if s.metrics != nil {
			s.metrics.PendingSweepRemovals.Add(float64(removedPending))
		}
		s.logger.Debug("swept pending registrations", "removed", removedPending)
	}

	removedCodes, err := s.codes.SweepExpired(ctx, now)
	if err != nil {
		s.logger.Error("code sweep failed", "error", err)
	} else if removedCodes > 0 {
		if s.metrics != nil {
			s.metrics.CodeSweepRemovals.Add(float64(removedCodes))
		}
		s.logger.Debug("swept verification codes", "removed", removedCodes)
	}
}
