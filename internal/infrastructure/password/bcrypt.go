// Package password implements the credential hashing primitives.
package password

import (
	"golang.org/x/crypto/bcrypt"

	usecase "accounts/backend/internal/usecase/auth"
)

// DefaultCost is the work factor used in production.
const DefaultCost = bcrypt.DefaultCost

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher constructs a hasher. A cost outside bcrypt's supported
// range falls back to the default work factor of 10.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

var _ usecase.PasswordHasher = (*BcryptHasher)(nil)

// Hash produces a salted bcrypt digest of the plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Mismatches and malformed
// digests both report false; bcrypt's comparison is constant-time over the
// derived key.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
