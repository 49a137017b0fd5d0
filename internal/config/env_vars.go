package config

import (
	"crypto/rand"
	"fmt"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
)

// EnvVars is the environment-backed Config implementation. Spotify client
// credentials are required; everything else has a workable default.
type EnvVars struct {
	Port        string `env:"PORT" envDefault:"8080"`
	AppName     string `env:"APP_NAME" envDefault:"Roast My Playlist"`
	Environment string `env:"ENV" envDefault:"DEV"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string `env:"SPOTIFY_REDIRECT_URI"`
	StateSecret         string `env:"STATE_SIGNING_SECRET"`

	RedisURL string `env:"ROAST_SESSION_REDIS_URL"`

	GeminiKey   string `env:"GEMINI_KEY"`
	GeminiModel string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-pro-exp-03-25"`

	stateSecret []byte
}

var _ Config = (*EnvVars)(nil)

// New parses configuration from the environment. Missing Spotify credentials
// are a hard failure: nothing downstream can work without them.
func New() (*EnvVars, error) {
	var c EnvVars
	if err := env.Parse(&c); err != nil {
		return nil, apperrors.Wrapf(err, "config parse")
	}

	var missing []string
	if c.SpotifyClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if c.SpotifyClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if c.SpotifyRedirectURI == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMisconfigured, missing)
	}

	if c.StateSecret != "" {
		c.stateSecret = []byte(c.StateSecret)
	} else {
		// Per-process secret: state tokens only need to outlive one login
		// round trip, so surviving a restart is not required.
		c.stateSecret = make([]byte, 32)
		if _, err := rand.Read(c.stateSecret); err != nil {
			return nil, apperrors.Wrapf(err, "config state secret")
		}
	}

	return &c, nil
}

func (c *EnvVars) GetPort() string {
	port := c.Port
	if port != "" && port[0] != ':' {
		port = ":" + port
	}
	return port
}

func (c *EnvVars) GetAppName() string { return c.AppName }

func (c *EnvVars) GetEnv() string { return c.Environment }

func (c *EnvVars) GetClientID() string { return c.SpotifyClientID }

func (c *EnvVars) GetClientSecret() string { return c.SpotifyClientSecret }

func (c *EnvVars) GetRedirectURI() string { return c.SpotifyRedirectURI }

func (c *EnvVars) GetStateSecret() []byte { return c.stateSecret }

func (c *EnvVars) GetRedisURL() string { return c.RedisURL }

func (c *EnvVars) GetGeminiKey() string { return c.GeminiKey }

func (c *EnvVars) GetGeminiModel() string { return c.GeminiModel }
