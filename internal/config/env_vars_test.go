package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d-j-kendall/roast-my-playlist/internal/config"
	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIFY_CLIENT_ID", "client-1")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret-1")
	t.Setenv("SPOTIFY_REDIRECT_URI", "http://localhost:3000/api/auth/callback")
}

func TestNewWithDefaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "Roast My Playlist", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "client-1", c.GetClientID())
	require.Empty(t, c.GetRedisURL())
	require.NotEmpty(t, c.GetStateSecret()) // generated when unset
}

func TestNewMissingSpotifyCredentials(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("SPOTIFY_REDIRECT_URI", "")

	_, err := config.New()
	require.ErrorIs(t, err, apperrors.ErrMisconfigured)
	require.Contains(t, err.Error(), "SPOTIFY_CLIENT_ID")
}

func TestPortNormalized(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, ":9090", c.GetPort())
}

func TestExplicitStateSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STATE_SIGNING_SECRET", "fixed-secret")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, []byte("fixed-secret"), c.GetStateSecret())
}
