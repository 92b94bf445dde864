// ABOUTME: Access token helpers for diagnostics
// ABOUTME: Redacts token values and reads unverified JWT claims for expiry logging

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrNotJWT       = errors.New("token is not a JWT")
	ErrMissingClaim = errors.New("missing required claim")
)

// Redact shortens a token so it can appear in diagnostics.
func Redact(token string) string {
	if len(token) <= 12 {
		return "[redacted]"
	}
	return token[:6] + "..." + token[len(token)-4:]
}

// TokenInfo is what the diagnostic stream is told about an access token.
type TokenInfo struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// InspectToken decodes the claims of a JWT without verifying its signature.
// The backend is the token's verifier; this is for logging only.
func InspectToken(tokenString string) (TokenInfo, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenInfo{}, ErrNotJWT
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return TokenInfo{}, fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	sub, _ := claims.GetSubject()
	iss, _ := claims.GetIssuer()

	return TokenInfo{Subject: sub, Issuer: iss, ExpiresAt: exp.Time}, nil
}
