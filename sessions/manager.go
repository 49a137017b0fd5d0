package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
)

// Manager collapses "is my token still good" and "can I make it good again"
// into one idempotent entry point. It is the only component that decides
// session death: a rejected refresh kills the session, a transport failure
// does not (the refresh token was never evaluated by the provider).
type Manager struct {
	store    *Store
	provider TokenProvider

	// Concurrent expiries on the same session id (two browser tabs) are
	// serialized so only one refresh call reaches the provider; a second
	// caller would otherwise present an already-rotated refresh token and
	// kill a session the first caller just renewed.
	refreshes singleflight.Group
}

func NewManager(store *Store, provider TokenProvider) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if provider == nil {
		return nil, errors.New("[NewManager] provider is required")
	}
	return &Manager{store: store, provider: provider}, nil
}

// ResolveAccessToken produces a usable access token for sessionID:
// the stored one when still valid, a freshly refreshed one when expired.
// ErrUnauthorized means the session is gone for good and the caller must
// re-authenticate; ErrTransient means the attempt may be retried as a whole.
func (m *Manager) ResolveAccessToken(ctx context.Context, sessionID string) (string, error) {
	session, err := m.store.Validate(ctx, sessionID)
	if err == nil {
		return session.AccessToken, nil
	}
	if !errors.Is(err, apperrors.ErrSessionNotFound) && !errors.Is(err, apperrors.ErrSessionExpired) {
		return "", err // store unreachable, not a verdict on the session
	}

	token, err, _ := m.refreshes.Do(sessionID, func() (any, error) {
		return m.refresh(ctx, sessionID)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (m *Manager) refresh(ctx context.Context, sessionID string) (string, error) {
	record, err := m.store.Fetch(ctx, sessionID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		m.store.Kill(ctx, sessionID)
		return "", fmt.Errorf("session %s has no record to refresh: %w", sessionID, apperrors.ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}
	if record.RefreshToken == "" {
		m.store.Kill(ctx, sessionID)
		return "", fmt.Errorf("session %s has no refresh token: %w", sessionID, apperrors.ErrUnauthorized)
	}

	bundle, err := m.provider.Refresh(ctx, record.RefreshToken)
	if err != nil {
		var rejection *apperrors.ProviderRejection
		if apperrors.As(err, &rejection) {
			log.Info().Str("session_id", sessionID).Int("status", rejection.StatusCode).
				Msg("refresh rejected by provider, killing session")
			m.store.Kill(ctx, sessionID)
			return "", fmt.Errorf("refresh rejected: %w", apperrors.ErrUnauthorized)
		}
		return "", err // transient: session survives, caller may retry
	}

	// Provider may omit a new refresh token; keep using the prior one.
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = record.RefreshToken
	}

	if _, err := m.store.Persist(ctx, sessionID, bundle); err != nil {
		return "", err
	}

	log.Debug().Str("session_id", sessionID).Msg("session token refreshed")
	return bundle.AccessToken, nil
}

// Kill tears the session down (logout). Best-effort, like Store.Kill.
func (m *Manager) Kill(ctx context.Context, sessionID string) {
	m.store.Kill(ctx, sessionID)
}
