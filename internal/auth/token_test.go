package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}

func TestInspectReadsClaims(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": expiry.Unix(),
	})

	info, err := Inspect(token)
	if err != nil {
		t.Fatalf("Failed to inspect token: %v", err)
	}
	if info.Subject != "user-1" {
		t.Errorf("Expected subject user-1, got %q", info.Subject)
	}
	if !info.ExpiresAt.Equal(expiry) {
		t.Errorf("Expected expiry %v, got %v", expiry, info.ExpiresAt)
	}
	if info.Expired() {
		t.Error("Expected a future expiry to report not expired")
	}
}

func TestInspectTokenWithoutExpiry(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-2"})

	info, err := Inspect(token)
	if err != nil {
		t.Fatalf("Failed to inspect token: %v", err)
	}
	if !info.ExpiresAt.IsZero() {
		t.Errorf("Expected zero expiry, got %v", info.ExpiresAt)
	}
	if info.Expired() {
		t.Error("Expected a token without expiry to never expire")
	}
}

func TestAuthenticated(t *testing.T) {
	if Authenticated("") {
		t.Error("Expected empty token to be unauthenticated")
	}

	valid := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	if !Authenticated(valid) {
		t.Error("Expected valid token to be authenticated")
	}

	expired := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	if Authenticated(expired) {
		t.Error("Expected expired token to be unauthenticated")
	}

	// Opaque tokens cannot be inspected and are taken at face value.
	if !Authenticated("opaque-api-key") {
		t.Error("Expected opaque token to be authenticated")
	}
}
