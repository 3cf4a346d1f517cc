// Package logger builds the process-wide slog logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a text-handler logger at the given level. Level values follow
// slog conventions (0 info, -4 debug, 4 warn, 8 error).
func New(level int) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.Level(level),
	}))
}
