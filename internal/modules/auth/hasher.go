package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes new passwords with bcrypt and still verifies the unsalted
// SHA-256 hex digests written by the previous system.
type Hasher struct {
	Cost int
}

func NewHasher() *Hasher { return &Hasher{Cost: bcrypt.DefaultCost} }

func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches hash, and whether hash is a legacy
// digest that should be replaced.
func (h *Hasher) Verify(hash, plain string) (ok, legacy bool) {
	if isLegacyDigest(hash) {
		sum := sha256.Sum256([]byte(plain))
		want := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(want), []byte(hash)) == 1, true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil, false
}

func isLegacyDigest(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
