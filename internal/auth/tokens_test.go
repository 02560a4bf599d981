package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Muhsin-Gun/event-API/internal/auth"
	"github.com/Muhsin-Gun/event-API/internal/config"
)

func newTokens(accessTTL time.Duration) *auth.Tokens {
	return auth.NewTokens(config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		ResetSecret:   "reset-secret",
		AccessTTL:     accessTTL,
		RefreshTTL:    time.Hour,
		ResetTTL:      30 * time.Minute,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := newTokens(time.Hour)

	signed, err := tokens.SignAccess("user-1", "admin")
	require.NoError(t, err)

	userID, role, err := tokens.VerifyAccess(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.Equal(t, "admin", role)
}

func TestAccessTokenExpiry(t *testing.T) {
	tokens := newTokens(-time.Minute)

	signed, err := tokens.SignAccess("user-1", "client")
	require.NoError(t, err)

	_, _, err = tokens.VerifyAccess(signed)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	tokens := newTokens(time.Hour)

	refresh, err := tokens.SignRefresh("user-1")
	require.NoError(t, err)
	reset, err := tokens.SignReset("user-1")
	require.NoError(t, err)

	// Each token kind is bound to its own secret.
	_, _, err = tokens.VerifyAccess(refresh)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = tokens.VerifyRefresh(reset)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = tokens.VerifyReset(refresh)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	tokens := newTokens(time.Hour)

	signed, err := tokens.SignRefresh("user-7")
	require.NoError(t, err)

	userID, err := tokens.VerifyRefresh(signed)
	require.NoError(t, err)
	require.Equal(t, "user-7", userID)
}

func TestResetTokensAreUniquePerIssue(t *testing.T) {
	tokens := newTokens(time.Hour)

	a, err := tokens.SignReset("user-1")
	require.NoError(t, err)
	b, err := tokens.SignReset("user-1")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "replacing a token must change its stored hash")
}

func TestGarbageToken(t *testing.T) {
	tokens := newTokens(time.Hour)
	_, _, err := tokens.VerifyAccess("not.a.jwt")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
