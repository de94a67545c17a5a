package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
)

func testService(expiration time.Duration) *Service {
	return NewService(&config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        expiration,
		RefreshExpiration: 168 * time.Hour,
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	svc := testService(24 * time.Hour)

	password := "appraisal-pass-123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == "" || hash == password {
		t.Error("Hash should be non-empty and differ from the password")
	}

	if err := svc.VerifyPassword(hash, password); err != nil {
		t.Errorf("Should verify correct password, got error: %v", err)
	}
	if err := svc.VerifyPassword(hash, "wrongpassword"); err == nil {
		t.Error("Should not verify incorrect password")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService(24 * time.Hour)

	token, jti, err := svc.GenerateToken(7, "director@school.example")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("Token and JTI should not be empty")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("Expected user ID 7, got %d", claims.UserID)
	}
	if claims.Email != "director@school.example" {
		t.Errorf("Expected email director@school.example, got %s", claims.Email)
	}
	if claims.TokenType != "access" {
		t.Errorf("Expected access token type, got %s", claims.TokenType)
	}
	if claims.ID != jti {
		t.Errorf("Expected claims ID %s, got %s", jti, claims.ID)
	}
}

func TestRefreshTokenType(t *testing.T) {
	svc := testService(24 * time.Hour)

	token, _, err := svc.GenerateRefreshToken(3, "teacher@school.example")
	if err != nil {
		t.Fatalf("Failed to generate refresh token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate refresh token: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("Expected refresh token type, got %s", claims.TokenType)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := testService(-1 * time.Hour)

	token, _, err := svc.GenerateToken(1, "teacher@school.example")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Should reject expired token")
	}
}

func TestValidateTamperedToken(t *testing.T) {
	svc := testService(24 * time.Hour)

	token, _, err := svc.GenerateToken(1, "teacher@school.example")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	// Strip the signature
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := svc.ValidateToken(tampered); err == nil {
		t.Error("Should reject token with a bad signature")
	}

	other := NewService(&config.JWTConfig{Secret: "other-secret", Expiration: 24 * time.Hour})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Should reject token signed with a different secret")
	}
}

func TestGenerateRandomToken(t *testing.T) {
	token1, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate random token: %v", err)
	}
	if len(token1) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(token1))
	}

	token2, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate second random token: %v", err)
	}
	if token1 == token2 {
		t.Error("Random tokens should be different")
	}
}
