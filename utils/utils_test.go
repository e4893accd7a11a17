package utils

import (
	"strings"
	"testing"
	"time"
)

func TestPasswordHashRoundtrip(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "s3cret" {
		t.Fatalf("password stored in plain text")
	}
	if !CheckPassword("s3cret", hashed) {
		t.Errorf("correct password rejected")
	}
	if CheckPassword("wrong", hashed) {
		t.Errorf("wrong password accepted")
	}
}

func TestJWTRoundtrip(t *testing.T) {
	ConfigureJWT("test-secret", time.Hour)

	token, err := GenerateJWT("alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(token, "Bearer ") {
		t.Errorf("expected a Bearer token, got %q", token)
	}

	username, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if username != "alice" {
		t.Errorf("expected alice, got %q", username)
	}

	if _, err := ParseJWT("Bearer not.a.token"); err == nil {
		t.Errorf("expected an error for a malformed token")
	}
}
