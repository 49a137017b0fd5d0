package sessions_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
	"github.com/d-j-kendall/roast-my-playlist/kvstore"
	"github.com/d-j-kendall/roast-my-playlist/sessions"
)

// fakeProvider scripts the token endpoint's refresh behavior.
type fakeProvider struct {
	bundle sessions.TokenBundle
	err    error

	calls         int
	lastRefreshed string
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (sessions.TokenBundle, error) {
	f.calls++
	f.lastRefreshed = refreshToken
	if f.err != nil {
		return sessions.TokenBundle{}, f.err
	}
	return f.bundle, nil
}

type managerFixture struct {
	kv       *kvstore.LocalStore
	store    *sessions.Store
	provider *fakeProvider
	manager  *sessions.Manager
	now      time.Time
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		kv:       kvstore.NewLocalStore(),
		provider: &fakeProvider{},
		now:      time.Now(),
	}
	f.store = sessions.NewStore(f.kv, sessions.WithNowFunc(func() time.Time { return f.now }))

	manager, err := sessions.NewManager(f.store, f.provider)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func TestNewManagerRequiresDependencies(t *testing.T) {
	_, err := sessions.NewManager(nil, &fakeProvider{})
	require.Error(t, err)

	_, err = sessions.NewManager(sessions.NewStore(kvstore.NewLocalStore()), nil)
	require.Error(t, err)
}

func TestResolveLiveSessionSkipsProvider(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.store.Persist(ctx, testSessionID, testBundle())
	require.NoError(t, err)

	token, err := f.manager.ResolveAccessToken(ctx, testSessionID)
	require.NoError(t, err)
	require.Equal(t, testAccessToken, token)
	require.Zero(t, f.provider.calls)
}

func TestResolveUnknownSessionIsUnauthorized(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.ResolveAccessToken(context.Background(), "unknown")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Zero(t, f.provider.calls)
}

func TestResolveExpiredSessionRefreshes(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.store.Persist(ctx, testSessionID, testBundle())
	require.NoError(t, err)

	f.now = f.now.Add(3601 * time.Second)
	f.provider.bundle = sessions.TokenBundle{
		AccessToken:  "A2",
		RefreshToken: "R2",
		ExpiresIn:    3600,
	}

	token, err := f.manager.ResolveAccessToken(ctx, testSessionID)
	require.NoError(t, err)
	require.Equal(t, "A2", token)
	require.Equal(t, testRefreshToken, f.provider.lastRefreshed)

	// The persisted session reflects the new bundle and new expiry.
	session, err := f.store.Validate(ctx, testSessionID)
	require.NoError(t, err)
	require.Equal(t, "A2", session.AccessToken)
	require.Equal(t, "R2", session.RefreshToken)
	require.InDelta(t, f.now.UnixMilli()+3600*1000, session.ExpiresAt, 1000)
}

func TestResolveRefreshReusesPriorRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.store.Persist(ctx, testSessionID, testBundle())
	require.NoError(t, err)

	f.now = f.now.Add(3601 * time.Second)
	f.provider.bundle = sessions.TokenBundle{AccessToken: "A2", ExpiresIn: 3600} // no new refresh token

	token, err := f.manager.ResolveAccessToken(ctx, testSessionID)
	require.NoError(t, err)
	require.Equal(t, "A2", token)

	session, err := f.store.Validate(ctx, testSessionID)
	require.NoError(t, err)
	require.Equal(t, testRefreshToken, session.RefreshToken)
}

func TestResolveRejectedRefreshKillsSession(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.store.Persist(ctx, testSessionID, testBundle())
	require.NoError(t, err)

	f.now = f.now.Add(3601 * time.Second)
	f.provider.err = fmt.Errorf("refresh: %w", &apperrors.ProviderRejection{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"error":"invalid_grant"}`),
	})

	_, err = f.manager.ResolveAccessToken(ctx, testSessionID)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Dead is terminal: the record is gone.
	_, err = f.store.Fetch(ctx, testSessionID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestResolveNetworkFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.store.Persist(ctx, testSessionID, testBundle())
	require.NoError(t, err)

	f.now = f.now.Add(3601 * time.Second)
	f.provider.err = fmt.Errorf("refresh: %w: connection refused", apperrors.ErrTransient)

	_, err = f.manager.ResolveAccessToken(ctx, testSessionID)
	require.ErrorIs(t, err, apperrors.ErrTransient)
	require.NotErrorIs(t, err, apperrors.ErrUnauthorized)

	// The refresh token was never evaluated by the provider, so the record
	// survives for a later retry.
	session, err := f.store.Fetch(ctx, testSessionID)
	require.NoError(t, err)
	require.Equal(t, testRefreshToken, session.RefreshToken)
}

func TestResolveRecordWithoutRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	record := []byte(`{"access_token":"A1","refresh_token":"","expires_in":3600,"expires_at":1}`)
	require.NoError(t, f.kv.Set(ctx, "session:"+testSessionID, record, 0))

	_, err := f.manager.ResolveAccessToken(ctx, testSessionID)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Zero(t, f.provider.calls)

	_, err = f.kv.Get(ctx, "session:"+testSessionID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

// Full lifecycle walk: persist, validate, expire, refresh through resolve,
// validate again.
// blockingProvider holds its first refresh open so concurrent resolvers can
// pile up behind it.
type blockingProvider struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
	bundle  sessions.TokenBundle
}

func (p *blockingProvider) Refresh(_ context.Context, _ string) (sessions.TokenBundle, error) {
	p.mu.Lock()
	p.calls++
	if p.calls == 1 {
		close(p.entered)
	}
	p.mu.Unlock()
	<-p.release
	return p.bundle, nil
}

func (p *blockingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestConcurrentResolvesShareSingleRefresh(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.store.Persist(ctx, testSessionID, testBundle())
	require.NoError(t, err)
	f.now = f.now.Add(3601 * time.Second)

	provider := &blockingProvider{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		bundle:  sessions.TokenBundle{AccessToken: "A2", RefreshToken: "R2", ExpiresIn: 3600},
	}
	manager, err := sessions.NewManager(f.store, provider)
	require.NoError(t, err)

	const callers = 8
	tokens := make(chan string, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			token, err := manager.ResolveAccessToken(ctx, testSessionID)
			errs <- err
			tokens <- token
		}()
	}

	<-provider.entered
	// Let the remaining callers reach the refresh gate before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(provider.release)

	// Every caller gets the refreshed token from the one provider call.
	for i := 0; i < callers; i++ {
		require.NoError(t, <-errs)
		require.Equal(t, "A2", <-tokens)
	}
	require.Equal(t, 1, provider.callCount())
}

func TestSessionLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.store.Persist(ctx, "S1", sessions.TokenBundle{
		AccessToken:  "A1",
		RefreshToken: "R1",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)

	session, err := f.store.Validate(ctx, "S1")
	require.NoError(t, err)
	require.Equal(t, "A1", session.AccessToken)
	require.Equal(t, "R1", session.RefreshToken)

	f.now = f.now.Add(3600*time.Second - 29*time.Second) // past expiry minus buffer
	_, err = f.store.Validate(ctx, "S1")
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)

	f.provider.bundle = sessions.TokenBundle{
		AccessToken:  "A2",
		RefreshToken: "R1",
		ExpiresIn:    3600,
	}

	token, err := f.manager.ResolveAccessToken(ctx, "S1")
	require.NoError(t, err)
	require.Equal(t, "A2", token)

	session, err = f.store.Validate(ctx, "S1")
	require.NoError(t, err)
	require.Equal(t, "A2", session.AccessToken)
	require.Equal(t, "R1", session.RefreshToken)
}
