package sender

import (
	"context"
	"log/slog"
	"strings"

	"ballotbox/contexts/identity-access/access-guard/ports"
)

// LogSender stands in for an SMS gateway. It records that a code went out
// and to which masked number, never the code itself.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendCode(_ context.Context, destination string, _ string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("verification code dispatched",
		"event", "access_code_dispatched",
		"module", "identity-access/access-guard",
		"layer", "adapter",
		"destination", MaskDestination(destination),
	)
	return nil
}

// MaskDestination keeps only the last two characters.
func MaskDestination(destination string) string {
	destination = strings.TrimSpace(destination)
	if len(destination) <= 2 {
		return strings.Repeat("*", len(destination))
	}
	return strings.Repeat("*", len(destination)-2) + destination[len(destination)-2:]
}

var _ ports.CodeSender = LogSender{}
