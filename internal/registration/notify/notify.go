// Package notify delivers verification codes through an outbound channel.
// Dispatch is fire-and-forget: a slow or failing channel never blocks or
// fails the registration response.
package notify

import (
	"context"
	"log/slog"
)

// Message is one outbound code delivery.
type Message struct {
	Address     string
	Code        string
	DisplayName string
}

// Notifier is the external delivery collaborator (mail, SMS, ...).
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes deliveries to the log. It is the development default
// and keeps the flow observable without an outbound channel configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("verification code notification",
		"address", msg.Address,
		"display_name", msg.DisplayName,
		"code", msg.Code,
	)
	return nil
}
