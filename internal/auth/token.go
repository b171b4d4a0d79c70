package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/golang-jwt/jwt/v5"
)

// Token is an access token with its refresh token and, when the access
// token is a JWT, its expiry.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// NewToken builds a Token, reading the expiry from the access token when it
// is a JWT. Opaque tokens get a zero expiry.
func NewToken(accessToken, refreshToken string) *Token {
	token := &Token{AccessToken: accessToken, RefreshToken: refreshToken}

	if expiresAt, err := ParseExpiry(accessToken); err == nil {
		token.ExpiresAt = expiresAt
	}

	return token
}

// ExpiresWithin reports whether a known expiry falls within d from now.
// Tokens without an expiry never report true.
func (t *Token) ExpiresWithin(d time.Duration) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(d).After(t.ExpiresAt)
}

// ParseExpiry reads the exp claim of a JWT without verifying its signature.
// The server remains the authority on validity; the expiry only drives
// proactive refresh.
func ParseExpiry(accessToken string) (time.Time, error) {
	if strings.Count(accessToken, ".") != constants.TokenPartsCount-1 {
		return time.Time{}, constants.ErrInvalidJWTFormat
	}

	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(accessToken, claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading exp claim: %w", err)
	}

	if exp == nil {
		return time.Time{}, constants.ErrNoExpirationClaim
	}

	return exp.Time, nil
}
