package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 7, "store", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

	parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.EqualValues(t, 7, claims["sub"])
	assert.Equal(t, "store", claims["role"])
}

func TestNewResetToken(t *testing.T) {
	a, err := NewResetToken(10)
	require.NoError(t, err)
	b, err := NewResetToken(10)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 64)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.WithinDuration(t, time.Now().UTC().Add(10*time.Minute), a.Exp, 5*time.Second)
}

func TestHashResetRaw(t *testing.T) {
	h1 := HashResetRaw("token")
	h2 := HashResetRaw("token")
	h3 := HashResetRaw("other")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
	// The raw token must never equal its stored form.
	assert.NotEqual(t, "token", h1)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}
