package commands

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/sha3"
)

const (
	purposeLogin       = "login"
	purposeCode        = "code"
	purposeCodeRequest = "code_request"
	purposeCodeVerify  = "code_verify"
)

// SubjectKey derives the storage key for a normalized subject. The raw value
// is never recoverable from the key.
func SubjectKey(purpose string, normalized string) string {
	sum := sha3.Sum256([]byte(normalized))
	return purpose + ":" + hex.EncodeToString(sum[:])
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// normalizePhone keeps digits and a leading plus sign.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if strings.Trim(normalized, "+") == "" {
		return ""
	}
	return normalized
}
