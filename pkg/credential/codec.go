// Package credential hashes and verifies account passwords.
package credential

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Codec hashes passwords with bcrypt at a fixed cost.
type Codec struct {
	cost int
}

// NewCodec returns a codec; out-of-range costs fall back to bcrypt.DefaultCost.
func NewCodec(cost int) *Codec {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Codec{cost: cost}
}

// Hash returns a salted digest of plaintext. Each call uses a fresh salt.
func (c *Codec) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches hash. Empty or malformed hashes never match.
func (c *Codec) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
