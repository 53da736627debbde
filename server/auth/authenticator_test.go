package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-please-ignore"

func TestAuthenticate(t *testing.T) {
	a := NewAuthenticator(testSecret)
	token, err := a.GenerateAccessToken("u-sarah", "Sarah Chen", time.Hour)
	require.NoError(t, err)

	claims, err := a.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u-sarah", claims.Subject)
	assert.Equal(t, "Sarah Chen", claims.Name)

	claims, err = a.Authenticate("bearer  " + token + " ")
	require.NoError(t, err)
	assert.Equal(t, "u-sarah", claims.Subject)
}

func TestAuthenticateRejects(t *testing.T) {
	a := NewAuthenticator(testSecret)
	other := NewAuthenticator("another-secret")
	foreign, err := other.GenerateAccessToken("u-sarah", "", time.Hour)
	require.NoError(t, err)

	expired, err := a.GenerateAccessToken("u-sarah", "", -time.Minute)
	require.NoError(t, err)

	noSubject, err := a.GenerateAccessToken("", "", time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "u-sarah",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{name: "missing", header: "", want: ErrMissingToken},
		{name: "wrong scheme", header: "Basic abc", want: ErrMissingToken},
		{name: "empty bearer", header: "Bearer ", want: ErrMissingToken},
		{name: "garbage", header: "Bearer not-a-jwt", want: ErrInvalidToken},
		{name: "foreign secret", header: "Bearer " + foreign, want: ErrInvalidToken},
		{name: "expired", header: "Bearer " + expired, want: ErrInvalidToken},
		{name: "no subject", header: "Bearer " + noSubject, want: ErrInvalidToken},
		{name: "alg none", header: "Bearer " + none, want: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDevMode(t *testing.T) {
	a := NewAuthenticator("")
	assert.True(t, a.DevMode())
	_, err := a.GenerateAccessToken("u-sarah", "", time.Hour)
	assert.Error(t, err)
	assert.False(t, NewAuthenticator(testSecret).DevMode())
}

func TestCallerContext(t *testing.T) {
	ctx := WithCaller(context.Background(), "u-david")
	caller, ok := CallerFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-david", caller)

	_, ok = CallerFromContext(context.Background())
	assert.False(t, ok)
	_, ok = CallerFromContext(WithCaller(context.Background(), ""))
	assert.False(t, ok)
}
