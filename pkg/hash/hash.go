// Package hash verifies and produces password hashes. New hashes are
// bcrypt; legacy argon2id hashes are still accepted for verification.
package hash

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

const DefaultCost = 12

type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher creates a bcrypt hasher. Out-of-range costs fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches encodedHash. A mismatch is
// (false, nil); only structurally invalid hashes return an error.
func (h *Hasher) VerifyPassword(password, encodedHash string) (bool, error) {
	switch {
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, ErrInvalidHash
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return verifyArgon2(password, encodedHash)
	default:
		return false, ErrInvalidHash
	}
}

// DummyVerify spends the time of a real bcrypt comparison. Used when the
// account does not exist so timing does not reveal it.
func (h *Hasher) DummyVerify(password string) {
	h.dummyOnce.Do(func() {
		seed := make([]byte, 18)
		_, _ = rand.Read(seed)
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(seed)), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

func isBcrypt(encodedHash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encodedHash, prefix) {
			return true
		}
	}
	return false
}
