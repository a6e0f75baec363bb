package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The client has no key; it only wants to avoid reusing a token it can
// already tell is dead. ok is false for opaque tokens and tokens without exp.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
