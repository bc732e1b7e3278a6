package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// TokenLength is the length in characters of verification and password
// reset tokens. Tokens are lowercase hex, so this must be even.
const TokenLength = 32

// GenerateToken returns an opaque token of TokenLength lowercase hex
// characters drawn from crypto/rand.
func GenerateToken() (string, error) {
	buffer := make([]byte, TokenLength/2)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
