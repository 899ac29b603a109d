package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret-that-is-long-enough-for-hs256", time.Minute)

	token, err := svc.GenerateToken("42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sub, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService("issuer-secret-that-is-long-enough!!", time.Minute)
	verifier := NewAuthService("different-secret-that-is-long-enough", time.Minute)

	token, err := issuer.GenerateToken("42")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService("test-secret-that-is-long-enough-for-hs256", -time.Minute)

	token, err := svc.GenerateToken("42")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	svc := NewAuthService("secret", time.Minute)

	hash, err := svc.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.NoError(t, svc.CompareHashAndPassword(hash, "hunter22"))
	assert.Error(t, svc.CompareHashAndPassword(hash, "hunter23"))
}

func TestGenerateRandomTokenIsUnique(t *testing.T) {
	svc := NewAuthService("secret", time.Minute)

	a, err := svc.GenerateRandomToken()
	require.NoError(t, err)
	b, err := svc.GenerateRandomToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
