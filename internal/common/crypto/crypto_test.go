package crypto_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AlibekovAA/examination-system/internal/common/crypto"
)

func TestBcryptHasher(t *testing.T) {
	h := crypto.NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("P@ssw0rd")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "P@ssw0rd" {
		t.Fatal("hash equals the password")
	}
	if err := h.Compare(hash, "P@ssw0rd"); err != nil {
		t.Errorf("Compare() with the right password = %v", err)
	}
	if err := h.Compare(hash, "wrong"); !errors.Is(err, crypto.ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestUUIDGenerator(t *testing.T) {
	g := crypto.NewUUIDGenerator()
	a, err := g.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	b, _ := g.NewID()
	if a == b {
		t.Error("ids repeat")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("not a uuid: %s", a)
	}
}

func TestTokenSources(t *testing.T) {
	std, err := crypto.StdBase64Source{}.Token(64)
	if err != nil {
		t.Fatalf("std token: %v", err)
	}
	if b, err := base64.StdEncoding.DecodeString(std); err != nil || len(b) != 64 {
		t.Errorf("std token decodes to %d bytes, %v", len(b), err)
	}

	url, err := crypto.URLBase64Source{}.Token(32)
	if err != nil {
		t.Fatalf("url token: %v", err)
	}
	if b, err := base64.RawURLEncoding.DecodeString(url); err != nil || len(b) != 32 {
		t.Errorf("url token decodes to %d bytes, %v", len(b), err)
	}
}

func TestSHA256Hex(t *testing.T) {
	got := crypto.SHA256Hex("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("SHA256Hex() = %s", got)
	}
	if !crypto.EqualHash(got, want) || crypto.EqualHash(got, want[:10]) {
		t.Error("EqualHash mismatch")
	}
}
