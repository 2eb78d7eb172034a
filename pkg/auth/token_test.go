package auth

import (
	"strings"
	"testing"
	"time"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestMintAndVerify(t *testing.T) {
	token, err := Mint(secret, "creekctl", time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	claims, err := Verify(secret, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "creekctl" {
		t.Errorf("expected subject creekctl, got %q", claims.Subject)
	}
	if claims.Issuer != Issuer {
		t.Errorf("expected issuer %q, got %q", Issuer, claims.Issuer)
	}
	if claims.Exp <= claims.Iat {
		t.Error("expected exp after iat")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Mint(secret, "creekctl", time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := Verify([]byte("another-secret-another-secret-xx"), token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	token, err := Mint(secret, "creekctl", -time.Minute)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := Verify(secret, token); err == nil {
		t.Fatal("expected verification failure for expired token")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := Verify(secret, "not.a.token"); err == nil {
		t.Fatal("expected verification failure for malformed token")
	}
}

func TestFromTokenUnverified(t *testing.T) {
	token, err := Mint(secret, "display-only", time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	claims, err := FromToken(token)
	if err != nil {
		t.Fatalf("FromToken failed: %v", err)
	}
	if claims.Subject != "display-only" {
		t.Errorf("expected subject display-only, got %q", claims.Subject)
	}

	// Unverified parse still rejects structurally invalid tokens.
	if _, err := FromToken(strings.Repeat("x", 10)); err == nil {
		t.Fatal("expected parse failure for malformed token")
	}
}
