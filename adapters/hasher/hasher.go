// Package hasher provides bcrypt hashing for the admin token that guards
// registry writes.
package hasher

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/artpar/calloutlint/ports"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt uses bcrypt for hashing.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher with the given cost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash generates a bcrypt hash from plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare checks if plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

var _ ports.Hasher = (*Bcrypt)(nil)

// AdminToken checks bearer tokens against a configured hash.
// The zero value (no hash) rejects every token.
type AdminToken struct {
	hash   []byte
	hasher ports.Hasher
}

// NewAdminToken wraps a stored hash, typically auth.admin_token_hash.
func NewAdminToken(hash string, hasher ports.Hasher) *AdminToken {
	return &AdminToken{hash: []byte(strings.TrimSpace(hash)), hasher: hasher}
}

// Configured reports whether a hash is set.
func (a *AdminToken) Configured() bool {
	return a != nil && len(a.hash) > 0
}

// Verify reports whether token matches the stored hash.
func (a *AdminToken) Verify(token string) bool {
	if !a.Configured() || token == "" {
		return false
	}
	return a.hasher.Compare(a.hash, token)
}

// GenerateToken returns a random token with the given prefix, e.g. "clt_<hex>".
func GenerateToken(prefix string) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}

// Fake provides a no-op hasher for testing (NOT FOR PRODUCTION).
type Fake struct{}

// Hash returns the plaintext as bytes (no actual hashing).
func (Fake) Hash(plaintext string) ([]byte, error) {
	return []byte(plaintext), nil
}

// Compare does simple equality check.
func (Fake) Compare(hash []byte, plaintext string) bool {
	return string(hash) == plaintext
}

var _ ports.Hasher = Fake{}
