package wxcrypt

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateAESKey returns a fresh 43-character encoded AES key, in the same
// form the provider console produces.
func GenerateAESKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("reading random key: %w", err)
	}
	return strings.TrimSuffix(encodeBase64(key), "="), nil
}

// GenerateToken returns a random 32-character token.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateNonce returns a random nonce for outbound envelopes.
func GenerateNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
