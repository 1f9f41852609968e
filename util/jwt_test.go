package util

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	SetJWTSecret("unit-test-secret")
	token, err := GenerateToken(7)
	require.NoError(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)

	SetJWTSecret("a-different-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestGetUserIDFromRequest(t *testing.T) {
	SetJWTSecret("unit-test-secret")
	token, err := GenerateToken(9)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/currentUser", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	userID, err := GetUserIDFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, int64(9), userID)

	// Missing and malformed headers resolve to anonymous, not an error.
	anon := httptest.NewRequest("GET", "/currentUser", nil)
	userID, err = GetUserIDFromRequest(anon)
	require.NoError(t, err)
	assert.Equal(t, int64(0), userID)

	bad := httptest.NewRequest("GET", "/currentUser", nil)
	bad.Header.Set("Authorization", "Bearer not-a-token")
	userID, err = GetUserIDFromRequest(bad)
	require.NoError(t, err)
	assert.Equal(t, int64(0), userID)
}
