// Package secret hashes and verifies the shared secret callers present.
package secret

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used by Hash.
const DefaultCost = 12

var ErrEmpty = errors.New("secret cannot be empty")

var hashPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Hash generates a bcrypt hash of the secret.
func Hash(secret string, cost int) (string, error) {
	if secret == "" {
		return "", ErrEmpty
	}
	if cost == 0 {
		cost = DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(bytes), nil
}

// IsHash reports whether configured looks like a bcrypt hash.
func IsHash(configured string) bool {
	for _, prefix := range hashPrefixes {
		if strings.HasPrefix(configured, prefix) {
			return true
		}
	}
	return false
}

// compareHash is swapped in tests to count bcrypt comparisons.
var compareHash = bcrypt.CompareHashAndPassword

// Verifier returns a function that checks a presented token against the
// configured value, which is either the plain secret or its bcrypt hash.
//
// With a hash, the last token that matched is kept so repeated requests are
// checked with a constant time compare instead of a full bcrypt round.
func Verifier(configured string) func(token string) bool {
	if IsHash(configured) {
		hash := []byte(configured)
		var verified atomic.Pointer[[]byte]
		return func(token string) bool {
			presented := []byte(token)
			if last := verified.Load(); last != nil && subtle.ConstantTimeCompare(presented, *last) == 1 {
				return true
			}
			if compareHash(hash, presented) != nil {
				return false
			}
			verified.Store(&presented)
			return true
		}
	}

	expected := []byte(configured)
	return func(token string) bool {
		return subtle.ConstantTimeCompare([]byte(token), expected) == 1
	}
}
