package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	h := Bcrypt{Cost: bcrypt.MinCost}

	hash, err := h.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "pw123" {
		t.Fatal("hash equals raw password")
	}
	if err := h.Compare(hash, "pw123"); err != nil {
		t.Errorf("Compare correct password: %v", err)
	}
	if err := h.Compare(hash, "wrong"); !errors.Is(err, ErrMismatch) {
		t.Errorf("Compare wrong password: got %v, want ErrMismatch", err)
	}
}

func TestBcrypt_Salted(t *testing.T) {
	h := Bcrypt{Cost: bcrypt.MinCost}
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Error("identical passwords produced identical hashes")
	}
}

func TestBcrypt_MalformedHash(t *testing.T) {
	err := Bcrypt{}.Compare("not-a-hash", "pw")
	if err == nil || errors.Is(err, ErrMismatch) {
		t.Errorf("expected malformed hash error, got %v", err)
	}
}

func TestBcrypt_MaxLength(t *testing.T) {
	h := Bcrypt{Cost: bcrypt.MinCost}
	if _, err := h.Hash(strings.Repeat("p", MaxLength)); err != nil {
		t.Errorf("Hash at MaxLength: %v", err)
	}
	if _, err := h.Hash(strings.Repeat("p", MaxLength+1)); err == nil {
		t.Error("Hash past MaxLength: expected error")
	}
}
