package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAdminTokens_Verify(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	tokens := AdminTokens{Hash: hash, Hasher: hasher}

	if err := tokens.Verify("s3cret"); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if err := tokens.Verify("nope"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if err := tokens.Verify(""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if err := (AdminTokens{}).Verify("s3cret"); !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("expected ErrAdminDisabled, got %v", err)
	}
}
