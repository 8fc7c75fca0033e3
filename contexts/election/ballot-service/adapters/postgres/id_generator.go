package postgresadapter

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// UUIDGenerator creates random UUIDv4 identifiers for tokens and events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// RandomSecrets produces hex-encoded nonces and vote signatures from
// crypto/rand.
type RandomSecrets struct{}

func (RandomSecrets) NewSecret(_ context.Context, size int) (string, error) {
	if size <= 0 {
		return "", errors.New("secret size must be positive")
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
