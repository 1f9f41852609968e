package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSecret []byte

// SetJWTSecret installs the signing key. Must be called at startup before any
// token is issued or verified.
func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// GenerateToken signs a bearer token for the given user.
func GenerateToken(userID int64) (string, error) {
	if len(jwtSecret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken verifies a token string and returns the user id it carries.
// Returns 0 for anything invalid or expired.
func ParseToken(tokenString string) (int64, error) {
	if len(jwtSecret) == 0 {
		return 0, errors.New("jwt secret not configured")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return userID, nil
}

// GetUserIDFromRequest extracts the user id from the Authorization header.
// Returns 0 (no error) when the header is absent so the middleware can decide
// how to respond.
func GetUserIDFromRequest(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, nil
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	userID, err := ParseToken(tokenString)
	if err != nil {
		return 0, nil // invalid token, middleware treats as unauthorized
	}
	return userID, nil
}
