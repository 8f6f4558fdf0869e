package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	Cost = bcrypt.MinCost
	defer func() { Cost = bcrypt.DefaultCost }()

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash must not equal the plain text")
	}

	ok, err := CheckPassword(hash, "s3cret-pass")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = CheckPassword(hash, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestCheckPassword_CorruptHash(t *testing.T) {
	ok, err := CheckPassword("not-a-bcrypt-hash", "anything")
	if ok || err == nil {
		t.Fatalf("expected error for corrupt hash, got ok=%v err=%v", ok, err)
	}
}
