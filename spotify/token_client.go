// Package spotify holds the two Spotify-facing clients: TokenClient for the
// accounts token endpoint (code exchange and refresh) and WebAPIClient for
// the Web API listening data used to build a roast.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/d-j-kendall/roast-my-playlist/internal/config"
	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
	"github.com/d-j-kendall/roast-my-playlist/sessions"
)

const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"

	defaultTokenTimeout = 10 * time.Second
)

// Scopes requested at login. They cover the profile and listening data the
// roast endpoint reads.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-top-read",
	"user-read-recently-played",
}

// TokenClient performs the token-endpoint operations with client-credential
// basic auth. Neither call retries: an authorization code is single-use and
// a rejected refresh token is never fixed by waiting.
type TokenClient struct {
	conf       *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
}

var _ sessions.TokenProvider = (*TokenClient)(nil)

type TokenClientOption func(*TokenClient)

// WithEndpoint overrides the provider URLs (for tests).
func WithEndpoint(authURL, tokenURL string) TokenClientOption {
	return func(c *TokenClient) {
		c.conf.Endpoint.AuthURL = authURL
		c.conf.Endpoint.TokenURL = tokenURL
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(timeout time.Duration) TokenClientOption {
	return func(c *TokenClient) {
		c.timeout = timeout
	}
}

func NewTokenClient(cfg config.SpotifyConfig, options ...TokenClientOption) (*TokenClient, error) {
	if cfg.GetClientID() == "" || cfg.GetClientSecret() == "" || cfg.GetRedirectURI() == "" {
		return nil, fmt.Errorf("%w: spotify client credentials", apperrors.ErrMisconfigured)
	}

	c := &TokenClient{
		conf: &oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			RedirectURL:  cfg.GetRedirectURI(),
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthURL,
				TokenURL: TokenURL,
				// Spotify wants basic auth; pinning the style also stops
				// the library from probing with a second request, which
				// would burn a single-use authorization code.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{},
		timeout:    defaultTokenTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// AuthCodeURL builds the authorize redirect for the login handler.
// show_dialog forces re-approval so switching accounts works.
func (c *TokenClient) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange trades a single-use authorization code for a token bundle.
func (c *TokenClient) Exchange(ctx context.Context, code string) (sessions.TokenBundle, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return sessions.TokenBundle{}, classify(err, "exchange")
	}
	return bundle(tok, ""), nil
}

// Refresh obtains a new bundle with the refresh-token grant. When the
// provider omits a new refresh token the prior one is carried over.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (sessions.TokenBundle, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tok, err := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return sessions.TokenBundle{}, classify(err, "refresh")
	}
	return bundle(tok, refreshToken), nil
}

func (c *TokenClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return context.WithTimeout(ctx, c.timeout)
}

// classify maps library errors onto the service's error kinds: a non-2xx
// answer from the provider is a ProviderRejection carrying status and body,
// anything else (DNS, timeout, connection reset) is transient.
func classify(err error, op string) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return fmt.Errorf("spotify %s: %w", op, &apperrors.ProviderRejection{
			StatusCode: status,
			Body:       re.Body,
		})
	}
	return fmt.Errorf("spotify %s: %w: %w", op, apperrors.ErrTransient, err)
}

func bundle(tok *oauth2.Token, priorRefreshToken string) sessions.TokenBundle {
	b := sessions.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}
	if b.RefreshToken == "" {
		b.RefreshToken = priorRefreshToken
	}
	if b.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		b.ExpiresIn = int64(time.Until(tok.Expiry) / time.Second)
	}
	return b
}
