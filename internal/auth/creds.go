package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// SecureEqual compares two secrets in constant time.
func SecureEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// VerifyPassword checks input against a bcrypt hash when one is configured,
// falling back to a constant-time plaintext comparison.
func VerifyPassword(input, plaintext, bcryptHash string) bool {
	if bcryptHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(input)) == nil
	}
	return SecureEqual(input, plaintext)
}
