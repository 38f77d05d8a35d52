package token

import (
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"time"
)

var (
	ErrNotJWT   = errors.New("token is not a jwt")
	ErrNoExpiry = errors.New("token has no exp claim")
	ErrEmptyJWT = errors.New("token is empty")
)

// Claims are the fields the client cares about in a backend-issued access token.
// Signatures are never checked here: the backend is the only verifier.
type Claims struct {
	UserID    string
	TokenType string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

var parser = jwt.NewParser()

func Inspect(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrEmptyJWT
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	out := &Claims{
		UserID:    stringClaim(claims, "user_id"),
		TokenType: stringClaim(claims, "token_type"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	return out, nil
}

// ExpiresAt returns the exp claim of tokenString.
func ExpiresAt(tokenString string) (time.Time, error) {
	c, err := Inspect(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	if c.ExpiresAt.IsZero() {
		return time.Time{}, ErrNoExpiry
	}
	return c.ExpiresAt, nil
}

// ExpiresWithin reports whether tokenString is a JWT that expires before now+skew.
// Opaque tokens and tokens without exp report false.
func ExpiresWithin(tokenString string, skew time.Duration, now time.Time) bool {
	exp, err := ExpiresAt(tokenString)
	if err != nil {
		return false
	}
	return !now.Add(skew).Before(exp)
}

func stringClaim(claims jwt.MapClaims, name string) string {
	switch v := claims[name].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
