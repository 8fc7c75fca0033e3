package workers

import (
	"context"
	"log/slog"
	"time"

	application "ballotbox/contexts/identity-access/access-guard/application"
	"ballotbox/contexts/identity-access/access-guard/ports"
)

// Sweeper deletes lapsed attempt windows and expired verification codes.
type Sweeper struct {
	Attempts  ports.AttemptStore
	Codes     ports.CodeStore
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

type SweepResult struct {
	Windows int
	Codes   int
}

func (s Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	logger := application.ResolveLogger(s.Logger)
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	limit := s.BatchSize
	if limit <= 0 {
		limit = 500
	}

	windows, err := s.Attempts.DeleteLapsedWindows(ctx, now, limit)
	if err != nil {
		logger.Error("attempt window sweep failed",
			"event", "access_window_sweep_failed",
			"module", "identity-access/access-guard",
			"layer", "worker",
			"error", err.Error(),
		)
		return SweepResult{}, err
	}
	codes, err := s.Codes.DeleteExpiredCodes(ctx, now, limit)
	if err != nil {
		logger.Error("verification code sweep failed",
			"event", "access_code_sweep_failed",
			"module", "identity-access/access-guard",
			"layer", "worker",
			"error", err.Error(),
		)
		return SweepResult{Windows: windows}, err
	}
	if windows+codes > 0 {
		logger.Info("access guard sweep completed",
			"event", "access_sweep_completed",
			"module", "identity-access/access-guard",
			"layer", "worker",
			"windows_deleted", windows,
			"codes_deleted", codes,
		)
	}
	return SweepResult{Windows: windows, Codes: codes}, nil
}
