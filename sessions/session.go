// Package sessions owns the server-side session that wraps a Spotify
// access/refresh token pair behind an opaque identifier. The Store handles
// persistence and validation; the Manager decides the session's fate
// (refresh or kill) and is the single entry point callers use to obtain a
// usable access token.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Session is the persisted entity. ExpiresAt is computed once at write time
// from ExpiresIn and is the authoritative expiry; the store-level TTL is a
// cleanup mechanism only.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // provider-declared validity, seconds
	ExpiresAt    int64  `json:"expires_at"` // absolute expiry, epoch milliseconds
}

// TokenBundle is what the provider's token endpoint hands back on a
// successful exchange or refresh.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenProvider performs the refresh-grant call against the OAuth provider.
// Rejections are reported as *errors.ProviderRejection; transport failures
// wrap errors.ErrTransient.
type TokenProvider interface {
	Refresh(ctx context.Context, refreshToken string) (TokenBundle, error)
}

const sessionIDBytes = 16 // 128 bits of entropy

// NewSessionID mints an unguessable session identifier. Identifiers are
// never reused: a fresh one is generated on every login.
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
