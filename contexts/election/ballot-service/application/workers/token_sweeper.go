package workers

import (
	"context"
	"log/slog"
	"time"

	application "ballotbox/contexts/election/ballot-service/application"
	"ballotbox/contexts/election/ballot-service/ports"
)

// TokenSweeper removes tokens whose expiry has passed, spent or not.
type TokenSweeper struct {
	Tokens    ports.TokenRepository
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (s TokenSweeper) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(s.Logger)
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	limit := s.BatchSize
	if limit <= 0 {
		limit = 500
	}

	deleted, err := s.Tokens.DeleteExpiredTokens(ctx, now, limit)
	if err != nil {
		logger.Error("expired token sweep failed",
			"event", "ballot_token_sweep_failed",
			"module", "election/ballot-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if deleted > 0 {
		logger.Info("expired tokens swept",
			"event", "ballot_token_sweep_completed",
			"module", "election/ballot-service",
			"layer", "worker",
			"deleted_count", deleted,
		)
	}
	return deleted, nil
}
