package notify

import (
	"context"
	"log/slog"

	"enrollgate/internal/registration/metrics"
)

// Dispatcher decouples request handling from delivery: Enqueue hands the
// message to a background worker and returns immediately. Delivery failures
// are logged and counted, never propagated to the caller — the code's
// authority comes from server-side state, not from proof the message
// arrived.
type Dispatcher struct {
	notifier Notifier
	inbox    chan Message
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(notifier Notifier, bufferSize int, opts ...DispatcherOption) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	d := &Dispatcher{
		notifier: notifier,
		inbox:    make(chan Message, bufferSize),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue never blocks. When the buffer is full the message is dropped and
// logged; the user recovers via Resend.
func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.inbox <- msg:
	default:
		d.logger.Warn("notification buffer full, dropping dispatch", "address", msg.Address)
		d.countFailure()
	}
}

// Run drains the inbox until ctx is canceled. Owned by the process, not by
// request handling.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.inbox:
			if err := d.notifier.Send(ctx, msg); err != nil {
				// The single intentionally swallowed failure in the
				// subsystem.
				d.logger.Error("notification dispatch failed",
					"address", msg.Address, "error", err)
				d.countFailure()
			}
		}
	}
}

func (d *Dispatcher) countFailure() {
	if d.metrics != nil {
		d.metrics.IncrementNotifyFailures()
	}
}
