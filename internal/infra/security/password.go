package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrTokenMissing  = errors.New("security: admin token missing")
	ErrTokenInvalid  = errors.New("security: admin token invalid")
	ErrAdminDisabled = errors.New("security: admin token not configured")
)

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}

// AdminTokens checks bearer tokens against the bcrypt hash from ADMIN_TOKEN_HASH.
// With no hash configured every token is refused.
type AdminTokens struct {
	Hash   string
	Hasher BcryptHasher
}

func (a AdminTokens) Verify(token string) error {
	if strings.TrimSpace(a.Hash) == "" {
		return ErrAdminDisabled
	}
	if token == "" {
		return ErrTokenMissing
	}
	if err := a.Hasher.Compare(a.Hash, token); err != nil {
		return ErrTokenInvalid
	}
	return nil
}
