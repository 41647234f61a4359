package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret-that-is-long-enough-for-hs256", time.Minute)
	subject := uuid.New()

	token, exp, err := tm.Issue(subject, RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	gotID, role, err := tm.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, subject, gotID)
	assert.Equal(t, RoleAdmin, role)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("test-secret-that-is-long-enough-for-hs256", time.Minute)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-that-is-long-enough-too", time.Minute)
		token, _, err := other.Issue(uuid.New(), RoleAdmin)
		require.NoError(t, err)

		_, _, err = tm.ParseAccess(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenManager("test-secret-that-is-long-enough-for-hs256", -time.Minute)
		token, _, err := expired.Issue(uuid.New(), RoleAdmin)
		require.NoError(t, err)

		_, _, err = tm.ParseAccess(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
			"sub": uuid.New().String(),
			"exp": time.Now().Add(time.Minute).Unix(),
		})
		signed, err := token.SignedString([]byte("test-secret-that-is-long-enough-for-hs256"))
		require.NoError(t, err)

		_, _, err = tm.ParseAccess(signed)
		assert.Error(t, err)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "admin",
			"exp": time.Now().Add(time.Minute).Unix(),
		})
		signed, err := token.SignedString([]byte("test-secret-that-is-long-enough-for-hs256"))
		require.NoError(t, err)

		_, _, err = tm.ParseAccess(signed)
		assert.Error(t, err)
	})
}
