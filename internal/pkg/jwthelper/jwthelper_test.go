package jwthelper

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = []byte("test-signing-key")

func TestGenerateAndParseToken(t *testing.T) {
	raw, err := GenerateToken(key, "user-1", "Jana Nováková", RoleOrganizer, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(key, raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Jana Nováková", claims.Name)
	assert.Equal(t, RoleOrganizer, claims.Role)
}

func TestParseToken_Rejects(t *testing.T) {
	expired, err := GenerateToken(key, "user-1", "", RoleParent, -time.Minute)
	require.NoError(t, err)

	otherKey, err := GenerateToken([]byte("other"), "user-1", "", RoleParent, time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleParent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(key)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":    expired,
		"wrong key":  otherKey,
		"no subject": noSubject,
		"garbage":    "not.a.token",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(key, raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
