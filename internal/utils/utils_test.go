package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("secret", 42, "alice", time.Hour)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), at.Exp, 5*time.Second)

	claims, err := ParseToken("secret", at.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
	require.Equal(t, "alice", claims.Username)
}

func TestParseTokenExpired(t *testing.T) {
	at, err := NewAccessToken("secret", 1, "alice", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", at.Token)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired), "got %v", err)
}

func TestParseTokenWrongSecret(t *testing.T) {
	rt, err := NewRefreshToken("refresh-secret", 1, "alice", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("access-secret", rt.Raw)
	require.Error(t, err)
	require.False(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestRefreshTokensAreUnique(t *testing.T) {
	a, err := NewRefreshToken("s", 1, "alice", time.Hour)
	require.NoError(t, err)
	b, err := NewRefreshToken("s", 1, "alice", time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, a.Raw, b.Raw)
	require.NotEqual(t, HashRefreshRaw(a.Raw), HashRefreshRaw(b.Raw))
	require.Len(t, HashRefreshRaw(a.Raw), 64)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", hash)
	require.True(t, VerifyPassword(hash, "correct horse"))
	require.False(t, VerifyPassword(hash, "wrong horse"))
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("pw-pw-pw-pw", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}

func TestBurnPasswordCheckDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() { BurnPasswordCheck("anything") })
}
