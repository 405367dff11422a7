package password

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	hash, err := b.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := b.Verify("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("Verify rejected the right password")
	}
}

func TestVerifyMismatchIsNotAnError(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	hash, err := b.Hash("right")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := b.Verify("wrong", hash)
	if err != nil {
		t.Fatalf("Verify returned error for mismatch: %v", err)
	}
	if ok {
		t.Error("Verify accepted the wrong password")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	b, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	ok, err := b.Verify("anything", "not-a-bcrypt-hash")
	if ok {
		t.Error("Verify accepted a malformed hash")
	}
	if !errors.Is(err, ErrHashMalformed) {
		t.Errorf("err = %v, want ErrHashMalformed", err)
	}
}

func TestNewBcryptCostBounds(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Error("NewBcrypt accepted cost above max")
	}
	if _, err := NewBcrypt(-1); err == nil {
		t.Error("NewBcrypt accepted negative cost")
	}
	if _, err := NewBcrypt(0); err != nil {
		t.Errorf("NewBcrypt(0) = %v, want default cost", err)
	}
}
