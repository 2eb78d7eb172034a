// Package auth mints and verifies the service tokens the API requires on
// every request. Tokens are HMAC-signed; the signing secret never leaves
// the daemon.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim the daemon stamps on every token it mints.
const Issuer = "creekrund"

// DefaultTTL is how long a minted token stays valid.
const DefaultTTL = 30 * 24 * time.Hour

// TokenClaims is a minimal, CLI-friendly view of the JWT payload.
// Important: when produced by FromToken (unverified parse) this is for
// display and UX only. Do not use these values for security decisions
// unless the token came through Verify.
type TokenClaims struct {
	Subject string
	Issuer  string
	Iat     int64
	Exp     int64
}

// Mint creates a signed service token for the given subject.
func Mint(secret []byte, subject string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": Issuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature, issuer, and expiry against the
// daemon's secret. Only HMAC-signed tokens are accepted.
func Verify(secret []byte, tokenStr string) (*TokenClaims, error) {
	var claims jwt.MapClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return fromMapClaims(claims), nil
}

// ParseTokenClaims extracts raw claims from a JWT without verifying its
// signature. Useful for clients that need to inspect token payloads but do
// not possess the signing key. WARNING: do not rely on this for
// authorization.
func ParseTokenClaims(tokenStr string) (jwt.MapClaims, error) {
	var claims jwt.MapClaims
	parser := new(jwt.Parser)
	_, _, err := parser.ParseUnverified(tokenStr, &claims)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// FromToken reads token claims without verification, for display.
func FromToken(tokenStr string) (*TokenClaims, error) {
	claims, err := ParseTokenClaims(tokenStr)
	if err != nil {
		return nil, err
	}
	return fromMapClaims(claims), nil
}

// fromMapClaims tolerates both string and numeric forms of the sub, iat,
// and exp claims and normalizes them.
func fromMapClaims(mc jwt.MapClaims) *TokenClaims {
	tc := &TokenClaims{}

	if sub, ok := mc["sub"]; ok {
		switch v := sub.(type) {
		case string:
			tc.Subject = v
		case float64:
			tc.Subject = strconv.FormatInt(int64(v), 10)
		default:
			tc.Subject = fmt.Sprintf("%v", v)
		}
	}

	if iss, ok := mc["iss"].(string); ok {
		tc.Issuer = iss
	}

	if iat, ok := mc["iat"]; ok {
		switch v := iat.(type) {
		case float64:
			tc.Iat = int64(v)
		case int64:
			tc.Iat = v
		}
	}

	if exp, ok := mc["exp"]; ok {
		switch v := exp.(type) {
		case float64:
			tc.Exp = int64(v)
		case int64:
			tc.Exp = v
		}
	}

	return tc
}
