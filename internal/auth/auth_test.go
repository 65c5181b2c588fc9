package auth

import (
	"testing"

	"skillhub.io/skill-exchange/internal/config"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	token, err := GenerateJWT("user-123")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	userID, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("expected subject user-123, got %q", userID)
	}
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	if _, err := ValidateJWT("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	token, err := GenerateJWT("user-123")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	config.AppConfig.JWTSecret = "another-secret"
	if _, err := ValidateJWT(token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPasswordHash("hunter2hunter2", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPasswordHash("wrong-password", hash) {
		t.Fatal("wrong password accepted")
	}
}
