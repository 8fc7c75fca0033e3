package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/identity-access/access-guard/application"
	"ballotbox/contexts/identity-access/access-guard/domain/entities"
	domainerrors "ballotbox/contexts/identity-access/access-guard/domain/errors"
	"ballotbox/contexts/identity-access/access-guard/ports"
)

// AttemptCounter records attempts per subject in fixed windows. It enforces
// no policy; callers decide whether to check before or after recording.
type AttemptCounter struct {
	Attempts ports.AttemptStore
	Clock    ports.Clock
	Logger   *slog.Logger
}

// RecordAttempt starts a new window of length window when none is active,
// otherwise increments the active one.
func (c AttemptCounter) RecordAttempt(ctx context.Context, subjectKey string, window time.Duration) (entities.AttemptWindow, error) {
	subjectKey = strings.TrimSpace(subjectKey)
	if subjectKey == "" {
		return entities.AttemptWindow{}, domainerrors.ErrInvalidSubject
	}
	if window <= 0 {
		return entities.AttemptWindow{}, domainerrors.ErrInvalidAttemptPolicy
	}
	result, err := c.Attempts.IncrementAttempt(ctx, subjectKey, c.now(), window)
	if err != nil {
		application.ResolveLogger(c.Logger).Error("attempt record failed",
			"event", "access_attempt_record_failed",
			"module", "identity-access/access-guard",
			"layer", "application",
			"error", err.Error(),
		)
		return entities.AttemptWindow{}, err
	}
	return result, nil
}

// IsBlocked is true iff an active window has reached maxAttempts.
func (c AttemptCounter) IsBlocked(ctx context.Context, subjectKey string, maxAttempts int) (bool, error) {
	if maxAttempts <= 0 {
		return false, domainerrors.ErrInvalidAttemptPolicy
	}
	current, active, err := c.Current(ctx, subjectKey)
	if err != nil {
		return false, err
	}
	return active && current.Count >= maxAttempts, nil
}

// Current returns the stored window and whether it is still active.
func (c AttemptCounter) Current(ctx context.Context, subjectKey string) (entities.AttemptWindow, bool, error) {
	subjectKey = strings.TrimSpace(subjectKey)
	if subjectKey == "" {
		return entities.AttemptWindow{}, false, domainerrors.ErrInvalidSubject
	}
	window, found, err := c.Attempts.GetAttemptWindow(ctx, subjectKey)
	if err != nil {
		return entities.AttemptWindow{}, false, err
	}
	if !found {
		return entities.AttemptWindow{SubjectKey: subjectKey}, false, nil
	}
	return window, window.ActiveAt(c.now()), nil
}

func (c AttemptCounter) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
