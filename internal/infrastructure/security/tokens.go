// Package security provides identifier generation, server-token derivation,
// and admin JWT utilities.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

// GenerateULID returns a new lexicographically sortable unique identifier.
func GenerateULID() string {
	return ulid.Make().String()
}

// DeriveServerToken computes the opaque server token for a fingerprint hash.
// The derivation is deterministic for a given salt and infeasible to invert
// without it, so the token is safe to hand back to the client.
func DeriveServerToken(hash, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(hash))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateAdminToken creates an HS256 token carrying the admin role.
func GenerateAdminToken(jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"role": "admin",
		"type": "admin_auth",
		"iat":  time.Now().UTC().Unix(),
		"exp":  time.Now().UTC().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// CheckAdminPassword compares the supplied password against the configured
// one, accepting either a bcrypt hash or, as a transition fallback, the
// plaintext value itself.
func CheckAdminPassword(configured, supplied string) bool {
	if configured == "" {
		return false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(configured), []byte(supplied)); err == nil {
		return true
	}
	return configured == supplied
}
