package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenEntry is the on-disk record for a stored token.
type TokenEntry struct {
	// Profile names the backend the token belongs to.
	Profile string `json:"profile"`

	Token string `json:"token"`

	StoredAt time.Time `json:"stored_at"`

	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// NewTokenEntry builds an entry and reads the expiry from the token when it
// is a JWT. The signature is not verified; the backend does that.
func NewTokenEntry(profile, token string) *TokenEntry {
	return &TokenEntry{
		Profile:   profile,
		Token:     token,
		StoredAt:  time.Now(),
		ExpiresAt: TokenExpiry(token),
	}
}

// IsExpired reports whether the entry has a known expiry in the past.
func (e *TokenEntry) IsExpired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// TimeUntilExpiration returns the remaining lifetime, or 0 when expired or
// unknown.
func (e *TokenEntry) TimeUntilExpiration() time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	remaining := time.Until(e.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TokenExpiry returns the exp claim of a JWT, or the zero time if token is
// not a JWT or has no exp.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
