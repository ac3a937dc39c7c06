package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the agent can learn from the backend API token. The
// backend signs its tokens with a secret the agent does not hold, so the
// claims are read without signature verification; the backend remains the
// authority on whether a token is accepted.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no expiry
}

// Expired reports whether the token's expiry has passed. Tokens without an
// expiry never expire from the agent's point of view.
func (t TokenInfo) Expired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// Inspect parses the claims of a backend API token without verifying it.
func Inspect(token string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, err
	}
	info := TokenInfo{}
	if subject, err := claims.GetSubject(); err == nil {
		info.Subject = subject
	}
	if expiry, err := claims.GetExpirationTime(); err == nil && expiry != nil {
		info.ExpiresAt = expiry.Time
	}
	return info, nil
}

// Authenticated reports whether the configured token still looks usable:
// present, and not past its expiry when it parses as a JWT. Opaque tokens
// are taken at face value.
func Authenticated(token string) bool {
	if token == "" {
		return false
	}
	info, err := Inspect(token)
	if err != nil {
		return true
	}
	return !info.Expired()
}
