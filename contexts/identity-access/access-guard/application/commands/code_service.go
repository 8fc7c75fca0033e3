package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	application "ballotbox/contexts/identity-access/access-guard/application"
	"ballotbox/contexts/identity-access/access-guard/domain/entities"
	domainerrors "ballotbox/contexts/identity-access/access-guard/domain/errors"
	"ballotbox/contexts/identity-access/access-guard/ports"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCodeRequestWindow      = 15 * time.Minute
	DefaultCodeRequestMaxAttempts = 3
	DefaultCodeTTL                = 5 * time.Minute
	DefaultCodeVerifyMaxAttempts  = 5
)

type CodeIssued struct {
	ExpiresAt time.Time
}

// CodeService issues and verifies single-use numeric codes sent to a phone.
// Requests and failed verifications are throttled separately.
type CodeService struct {
	Counter            AttemptCounter
	Codes              ports.CodeStore
	Sender             ports.CodeSender
	CodeGen            ports.CodeGenerator
	Clock              ports.Clock
	RequestWindow      time.Duration
	RequestMaxAttempts int
	CodeTTL            time.Duration
	VerifyMaxAttempts  int
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *slog.Logger
}

// RequestCode always records the request, then refuses once the count
// exceeds RequestMaxAttempts for the active window.
func (s CodeService) RequestCode(ctx context.Context, phone string) (CodeIssued, error) {
	logger := application.ResolveLogger(s.Logger)
	normalized := normalizePhone(phone)
	if normalized == "" {
		return CodeIssued{}, domainerrors.ErrInvalidSubject
	}

	window, err := s.Counter.RecordAttempt(ctx, SubjectKey(purposeCodeRequest, normalized), s.requestWindow())
	if err != nil {
		return CodeIssued{}, err
	}
	if window.Count > s.requestMaxAttempts() {
		logger.Warn("verification code request throttled",
			"event", "access_code_request_throttled",
			"module", "identity-access/access-guard",
			"layer", "application",
			"window_ends_at", window.WindowEndsAt.Format(time.RFC3339),
		)
		return CodeIssued{}, domainerrors.ErrTooManyAttempts
	}

	code, err := s.newCode(ctx)
	if err != nil {
		return CodeIssued{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost())
	if err != nil {
		return CodeIssued{}, err
	}
	now := s.now()
	record := entities.VerificationCode{
		SubjectKey: SubjectKey(purposeCode, normalized),
		CodeHash:   string(hash),
		ExpiresAt:  now.Add(s.codeTTL()),
		CreatedAt:  now,
	}
	if err := s.Codes.PutCode(ctx, record); err != nil {
		logger.Error("verification code store failed",
			"event", "access_code_store_failed",
			"module", "identity-access/access-guard",
			"layer", "application",
			"error", err.Error(),
		)
		return CodeIssued{}, err
	}
	if err := s.Sender.SendCode(ctx, normalized, code); err != nil {
		logger.Error("verification code delivery failed",
			"event", "access_code_send_failed",
			"module", "identity-access/access-guard",
			"layer", "application",
			"error", err.Error(),
		)
		return CodeIssued{}, err
	}
	return CodeIssued{ExpiresAt: record.ExpiresAt}, nil
}

// VerifyCode consumes the outstanding code when it matches. Every call is
// counted before the hash compare, so concurrent guessers cannot get more
// than VerifyMaxAttempts compares per window. Of several concurrent
// verifiers holding the right code only one succeeds.
func (s CodeService) VerifyCode(ctx context.Context, phone string, code string) error {
	logger := application.ResolveLogger(s.Logger)
	normalized := normalizePhone(phone)
	if normalized == "" || code == "" {
		return domainerrors.ErrInvalidSubject
	}
	verifyKey := SubjectKey(purposeCodeVerify, normalized)
	codeKey := SubjectKey(purposeCode, normalized)

	window, err := s.Counter.RecordAttempt(ctx, verifyKey, s.requestWindow())
	if err != nil {
		return err
	}
	if window.Count > s.verifyMaxAttempts() {
		logger.Warn("verification code verify throttled",
			"event", "access_code_verify_throttled",
			"module", "identity-access/access-guard",
			"layer", "application",
			"window_ends_at", window.WindowEndsAt.Format(time.RFC3339),
		)
		return domainerrors.ErrTooManyAttempts
	}

	now := s.now()
	stored, found, err := s.Codes.GetCode(ctx, codeKey)
	if err != nil {
		return err
	}
	if !found || stored.ExpiredAt(now) {
		return domainerrors.ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(code)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return err
		}
		logger.Warn("verification code mismatch",
			"event", "access_code_verify_mismatch",
			"module", "identity-access/access-guard",
			"layer", "application",
		)
		return domainerrors.ErrCodeInvalid
	}

	consumed, err := s.Codes.ConsumeCode(ctx, codeKey, stored.CodeHash, now)
	if err != nil {
		return err
	}
	if !consumed {
		return domainerrors.ErrCodeExpired
	}
	logger.Info("verification code accepted",
		"event", "access_code_verified",
		"module", "identity-access/access-guard",
		"layer", "application",
	)
	return nil
}

func (s CodeService) newCode(ctx context.Context) (string, error) {
	if s.CodeGen != nil {
		return s.CodeGen.NewCode(ctx)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s CodeService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (s CodeService) requestWindow() time.Duration {
	if s.RequestWindow <= 0 {
		return DefaultCodeRequestWindow
	}
	return s.RequestWindow
}

func (s CodeService) requestMaxAttempts() int {
	if s.RequestMaxAttempts <= 0 {
		return DefaultCodeRequestMaxAttempts
	}
	return s.RequestMaxAttempts
}

func (s CodeService) codeTTL() time.Duration {
	if s.CodeTTL <= 0 {
		return DefaultCodeTTL
	}
	return s.CodeTTL
}

func (s CodeService) verifyMaxAttempts() int {
	if s.VerifyMaxAttempts <= 0 {
		return DefaultCodeVerifyMaxAttempts
	}
	return s.VerifyMaxAttempts
}

func (s CodeService) bcryptCost() int {
	if s.BcryptCost <= 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}
