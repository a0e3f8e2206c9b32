package auth

import (
	"testing"
	"time"
)

func TestGenerateTokenThenValidate(t *testing.T) {
	mgr, err := NewJWTManagerGenerated("mextdomen-test")
	if err != nil {
		t.Fatalf("NewJWTManagerGenerated: %v", err)
	}

	token, err := mgr.GenerateToken("user-123")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("got subject %q, want user-123", claims.Subject)
	}
}

func TestGenerateTokenHonorsConfiguredExpiry(t *testing.T) {
	mgr, err := NewJWTManagerGenerated("mextdomen-test")
	if err != nil {
		t.Fatalf("NewJWTManagerGenerated: %v", err)
	}
	mgr.tokenExpiry = -1 * time.Minute

	token, err := mgr.GenerateToken("user-123")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := mgr.ValidateToken(token); err != ErrTokenExpired {
		t.Fatalf("got %v, want ErrTokenExpired for a token issued with a negative expiry", err)
	}
}

func TestValidateAlgorithmRejectsUnsupported(t *testing.T) {
	if err := validateAlgorithm(""); err != nil {
		t.Fatalf("empty algorithm should default to RS256, got %v", err)
	}
	if err := validateAlgorithm("RS256"); err != nil {
		t.Fatalf("RS256 should be accepted, got %v", err)
	}
	if err := validateAlgorithm("rs256"); err != nil {
		t.Fatalf("algorithm match should be case-insensitive, got %v", err)
	}
	if err := validateAlgorithm("HS256"); err == nil {
		t.Fatal("expected HS256 to be rejected, this directory only signs with RS256")
	}
}

func TestNewJWTManagerFromFilesRejectsUnsupportedAlgorithm(t *testing.T) {
	_, err := NewJWTManagerFromFiles("/nonexistent-private.pem", "/nonexistent-public.pem", "mextdomen-test", "HS256", time.Hour)
	if err == nil {
		t.Fatal("expected an error for an unsupported algorithm")
	}
}
