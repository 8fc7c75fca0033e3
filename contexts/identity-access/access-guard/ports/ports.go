package ports

import (
	"context"
	"time"

	"ballotbox/contexts/identity-access/access-guard/domain/entities"
)

// AttemptStore keeps one window per subject key.
type AttemptStore interface {
	// IncrementAttempt applies AttemptWindow.Next as a single atomic write
	// and returns the stored result.
	IncrementAttempt(ctx context.Context, subjectKey string, now time.Time, window time.Duration) (entities.AttemptWindow, error)
	GetAttemptWindow(ctx context.Context, subjectKey string) (entities.AttemptWindow, bool, error)
	DeleteLapsedWindows(ctx context.Context, now time.Time, limit int) (int, error)
}

// CodeStore keeps at most one outstanding code per subject key.
type CodeStore interface {
	// PutCode replaces any code already stored for the subject.
	PutCode(ctx context.Context, code entities.VerificationCode) error
	GetCode(ctx context.Context, subjectKey string) (entities.VerificationCode, bool, error)
	// ConsumeCode deletes the code only if it still carries codeHash and
	// has not expired, and reports whether it did.
	ConsumeCode(ctx context.Context, subjectKey string, codeHash string, now time.Time) (bool, error)
	DeleteExpiredCodes(ctx context.Context, now time.Time, limit int) (int, error)
}

type CodeSender interface {
	SendCode(ctx context.Context, destination string, code string) error
}

type CodeGenerator interface {
	NewCode(ctx context.Context) (string, error)
}

type Clock interface {
	Now() time.Time
}
