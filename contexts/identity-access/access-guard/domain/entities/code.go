package entities

import "time"

// VerificationCode holds only the bcrypt hash of a one-time code.
type VerificationCode struct {
	SubjectKey string
	CodeHash   string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (c VerificationCode) ExpiredAt(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
