package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned for tokens that carry no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// StorageKey derives the key the refresh token of apiKey is persisted under.
func StorageKey(apiKey string) string {
	return "mw:" + crypto.Keccak256Hash([]byte(apiKey+":key")).Hex()
}

// AccessTokenExpiry reads the exp claim of a JWT access token without
// verifying its signature. The backend remains the authority on validity.
func AccessTokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether token expires within skew of now. Tokens that cannot
// be parsed, or carry no expiry, are treated as not expired.
func Expired(token string, skew time.Duration, now time.Time) bool {
	exp, err := AccessTokenExpiry(token)
	if err != nil {
		return false
	}
	return !now.Add(skew).Before(exp)
}
