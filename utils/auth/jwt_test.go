package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        expiry,
		RefreshExpiry: 2 * expiry,
		Issuer:        "pathlearn-test",
	})
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	manager := testJWTManager(time.Hour)

	token, jti, err := manager.GenerateAccessToken(42, "user@example.com", "learner", 3)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if jti == "" {
		t.Fatal("expected non-empty JTI")
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user ID 42, got %d", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("expected email user@example.com, got %s", claims.Email)
	}
	if claims.Role != "learner" {
		t.Errorf("expected role learner, got %s", claims.Role)
	}
	if claims.TokenType != "access" {
		t.Errorf("expected token type access, got %s", claims.TokenType)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("expected token version 3, got %d", claims.TokenVersion)
	}
	if claims.ID != jti {
		t.Errorf("expected claims ID %s, got %s", jti, claims.ID)
	}
}

func TestRefreshTokenHasRefreshType(t *testing.T) {
	manager := testJWTManager(time.Hour)

	token, _, err := manager.GenerateRefreshToken(7, "user@example.com", "learner", 0)
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("expected token type refresh, got %s", claims.TokenType)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager := testJWTManager(-time.Minute)

	token, _, err := manager.GenerateAccessToken(1, "user@example.com", "learner", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	_, err = manager.ValidateToken(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	manager := testJWTManager(time.Hour)
	other := NewJWTManager(JWTConfig{Secret: "different-secret", Expiry: time.Hour, RefreshExpiry: time.Hour, Issuer: "pathlearn-test"})

	token, _, err := manager.GenerateAccessToken(1, "user@example.com", "learner", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	_, err = other.ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	manager := testJWTManager(time.Hour)

	if _, err := manager.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGetTokenExpiry(t *testing.T) {
	manager := testJWTManager(time.Hour)

	token, _, err := manager.GenerateAccessToken(1, "user@example.com", "learner", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	expiry, err := manager.GetTokenExpiry(token)
	if err != nil {
		t.Fatalf("GetTokenExpiry failed: %v", err)
	}

	remaining := time.Until(expiry)
	if remaining < 55*time.Minute || remaining > 65*time.Minute {
		t.Errorf("expected expiry about an hour out, got %v", remaining)
	}
}
