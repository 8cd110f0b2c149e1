package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2$sha256$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}
	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("VerifyPassword rejected correct password: %v", err)
	}
	if err := VerifyPassword(hash, "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHashPasswordSaltsPerCall(t *testing.T) {
	first, err := HashPassword("secret-password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("secret-password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for repeated calls")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	cases := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "wrong identifier", hash: "bcrypt$sha256$1$c2FsdA$a2V5"},
		{name: "missing fields", hash: "pbkdf2$sha256$120000"},
		{name: "bad iterations", hash: "pbkdf2$sha256$zero$c2FsdA$a2V5"},
		{name: "bad salt encoding", hash: "pbkdf2$sha256$120000$!!$a2V5"},
		{name: "bad key encoding", hash: "pbkdf2$sha256$120000$c2FsdA$!!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := VerifyPassword(tc.hash, "anything"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}
