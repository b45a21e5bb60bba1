package wxcrypt

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the provider signature: the four strings sorted byte-wise,
// joined without a separator, SHA-1 hashed and hex encoded in lower case.
func Sign(token, timestamp, nonce, payload string) string {
	parts := []string{token, timestamp, nonce, payload}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

// VerifySignature reports whether signature matches the inputs. The
// comparison runs in constant time.
func VerifySignature(signature, token, timestamp, nonce, payload string) bool {
	expected := Sign(token, timestamp, nonce, payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
