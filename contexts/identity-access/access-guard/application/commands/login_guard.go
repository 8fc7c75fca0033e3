package commands

import (
	"context"
	"log/slog"
	"time"

	application "ballotbox/contexts/identity-access/access-guard/application"
	domainerrors "ballotbox/contexts/identity-access/access-guard/domain/errors"
)

const (
	DefaultLoginWindow      = 15 * time.Minute
	DefaultLoginMaxAttempts = 5
)

type LoginStatus struct {
	Locked       bool
	Attempts     int
	WindowEndsAt time.Time
}

// LoginGuard locks a username out after repeated failures. Callers check
// before verifying credentials and record only failures.
type LoginGuard struct {
	Counter     AttemptCounter
	Window      time.Duration
	MaxAttempts int
	Logger      *slog.Logger
}

func (g LoginGuard) CheckLogin(ctx context.Context, username string) error {
	key, err := loginKey(username)
	if err != nil {
		return err
	}
	blocked, err := g.Counter.IsBlocked(ctx, key, g.maxAttempts())
	if err != nil {
		return err
	}
	if blocked {
		application.ResolveLogger(g.Logger).Warn("login attempt while locked",
			"event", "access_login_locked",
			"module", "identity-access/access-guard",
			"layer", "application",
		)
		return domainerrors.ErrLoginLocked
	}
	return nil
}

func (g LoginGuard) RecordLoginFailure(ctx context.Context, username string) (LoginStatus, error) {
	key, err := loginKey(username)
	if err != nil {
		return LoginStatus{}, err
	}
	window, err := g.Counter.RecordAttempt(ctx, key, g.window())
	if err != nil {
		return LoginStatus{}, err
	}
	status := LoginStatus{
		Locked:       window.Count >= g.maxAttempts(),
		Attempts:     window.Count,
		WindowEndsAt: window.WindowEndsAt,
	}
	if status.Locked && window.Count == g.maxAttempts() {
		application.ResolveLogger(g.Logger).Warn("login locked after repeated failures",
			"event", "access_login_lock_started",
			"module", "identity-access/access-guard",
			"layer", "application",
			"window_ends_at", window.WindowEndsAt.Format(time.RFC3339),
		)
	}
	return status, nil
}

func (g LoginGuard) Status(ctx context.Context, username string) (LoginStatus, error) {
	key, err := loginKey(username)
	if err != nil {
		return LoginStatus{}, err
	}
	window, active, err := g.Counter.Current(ctx, key)
	if err != nil {
		return LoginStatus{}, err
	}
	if !active {
		return LoginStatus{}, nil
	}
	return LoginStatus{
		Locked:       window.Count >= g.maxAttempts(),
		Attempts:     window.Count,
		WindowEndsAt: window.WindowEndsAt,
	}, nil
}

func (g LoginGuard) window() time.Duration {
	if g.Window <= 0 {
		return DefaultLoginWindow
	}
	return g.Window
}

func (g LoginGuard) maxAttempts() int {
	if g.MaxAttempts <= 0 {
		return DefaultLoginMaxAttempts
	}
	return g.MaxAttempts
}

func loginKey(username string) (string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" {
		return "", domainerrors.ErrInvalidSubject
	}
	return SubjectKey(purposeLogin, normalized), nil
}
