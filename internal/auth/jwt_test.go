package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateToken(t *testing.T) {
	jwtService := NewJWTService("test-secret-key")

	token, err := jwtService.GenerateToken("client-123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "client-123", claims.ClientID)
	assert.NotNil(t, claims.ExpiresAt)
	assert.NotNil(t, claims.IssuedAt)
}

func TestJWTService_ValidateToken_InvalidToken(t *testing.T) {
	jwtService := NewJWTService("test-secret-key")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "random string", token: "not-a-jwt-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := jwtService.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateToken_WrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").GenerateToken("client")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateToken_Expired(t *testing.T) {
	jwtService := NewJWTService("test-secret-key")
	issued := time.Now().Add(-48 * time.Hour)
	jwtService.now = func() time.Time { return issued }

	token, err := jwtService.GenerateToken("client")
	require.NoError(t, err)

	jwtService.now = time.Now
	_, err = jwtService.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_ValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		ClientID:         "client",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("test-secret-key").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateToken_MissingClientID(t *testing.T) {
	jwtService := NewJWTService("test-secret-key")

	token, err := jwtService.GenerateToken("")
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_GenerateClientID(t *testing.T) {
	jwtService := NewJWTService("k")

	a := jwtService.GenerateClientID()
	b := jwtService.GenerateClientID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
