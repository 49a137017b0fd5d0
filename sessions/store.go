package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
	"github.com/d-j-kendall/roast-my-playlist/kvstore"
)

const (
	// storeTTLMargin keeps the store-level TTL strictly shorter than the
	// token's declared validity so the store cannot hand back a record the
	// validation below would already reject.
	storeTTLMargin = 60 * time.Second

	// validationBuffer rejects tokens that would expire mid-flight during
	// the downstream call the caller is about to make.
	validationBuffer = 30 * time.Second
)

// Store persists Session records in a key-value store. It reports facts
// about records (present, expired, corrupt); only the Manager decides
// whether a session lives or dies, with one exception: corrupt records are
// deleted on sight so a poison record cannot permanently block its key.
type Store struct {
	kv  kvstore.Store
	now func() time.Time
}

type StoreOption func(*Store)

// WithNowFunc overrides the clock (for tests).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(kv kvstore.Store, options ...StoreOption) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Persist writes a Session computed from bundle, stamping the authoritative
// expiry at write time. The store-level TTL is the declared validity minus a
// safety margin; when that would be non-positive the record is written with
// no store expiry and validation alone bounds its life.
func (s *Store) Persist(ctx context.Context, sessionID string, bundle TokenBundle) (Session, error) {
	session := Session{
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		ExpiresIn:    bundle.ExpiresIn,
		ExpiresAt:    s.now().UnixMilli() + bundle.ExpiresIn*1000,
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return Session{}, apperrors.Wrapf(err, "marshal session %s", sessionID)
	}

	ttl := time.Duration(bundle.ExpiresIn)*time.Second - storeTTLMargin
	if ttl <= 0 {
		ttl = 0
	}

	if err := s.kv.Set(ctx, sessionKey(sessionID), payload, ttl); err != nil {
		return Session{}, apperrors.Wrapf(err, "persist session %s", sessionID)
	}
	return session, nil
}

// Validate returns the live Session for sessionID. It reports
// ErrSessionNotFound when the record is missing or corrupt (corrupt records
// are deleted as a side effect) and ErrSessionExpired once the authoritative
// expiry, less the buffer, has passed. Expired records are left in place:
// their refresh token is still good and the Manager needs it.
func (s *Store) Validate(ctx context.Context, sessionID string) (Session, error) {
	session, err := s.Fetch(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	if session.ExpiresAt <= s.now().UnixMilli()+validationBuffer.Milliseconds() {
		return Session{}, fmt.Errorf("session %s past deadline: %w", sessionID, apperrors.ErrSessionExpired)
	}
	return session, nil
}

// Fetch reads and decodes the record without the expiry check. The Manager
// uses it to recover the refresh token from a just-expired session.
func (s *Store) Fetch(ctx context.Context, sessionID string) (Session, error) {
	raw, err := s.kv.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, apperrors.ErrNotFound) {
		return Session{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return Session{}, apperrors.Wrapf(err, "fetch session %s", sessionID)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil || session.AccessToken == "" {
		log.Warn().Str("session_id", sessionID).Msg("deleting corrupt session record")
		s.Kill(ctx, sessionID)
		return Session{}, fmt.Errorf("%w: %w", apperrors.ErrSessionNotFound, apperrors.ErrCorrupted)
	}
	return session, nil
}

// Kill unconditionally deletes the record. Best-effort: a failed delete is
// logged, never propagated, so teardown can always proceed.
func (s *Store) Kill(ctx context.Context, sessionID string) {
	if err := s.kv.Delete(ctx, sessionKey(sessionID)); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session delete failed")
	}
}
