package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/auth"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/credential"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/storage"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/wire"
)

const apiKey = "test-api-key"

// backend fakes the auth endpoints plus one authenticated wallet call.
type backend struct {
	mu         sync.Mutex
	meFails    bool
	logoutFail bool
	walletAuth [][]string
	meCalls    int
	refreshes  int
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v2/auth/me":
		b.meCalls++
		if b.meFails {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":500,"status":"failed","message":"boom"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"id":1,"email":"u@x.io","wallet":{"sol_address":"So1","eth_address":"0xE1"}}}`))
	case "/v2/auth/refresh-token":
		b.refreshes++
		if r.Header.Get(api.HeaderRefreshToken) != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"status":"failed","message":"invalid refresh token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"access_token":"A2","refresh_token":"R2","user":{"id":2,"email":"r@x.io"}}}`))
	case "/v2/auth/login":
		_, _ = w.Write([]byte(`{"code":0,"data":{"access_token":"AP","refresh_token":"RP","user":{"id":3}}}`))
	case "/v2/auth/logout":
		if b.logoutFail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"code":0}`))
	case "/v2/solana/devnet/wallet/tokens":
		b.walletAuth = append(b.walletAuth, r.Header.Values(credential.HeaderAuthorization))
		_, _ = w.Write([]byte(`{"code":0,"data":[]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *backend) setMeFails(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meFails = v
}

func (b *backend) counts() (me, refreshes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meCalls, b.refreshes
}

func (b *backend) lastWalletAuth() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.walletAuth[len(b.walletAuth)-1]
}

type harness struct {
	backend  *backend
	bus      *event.Bus
	creds    *credential.Store
	services *api.ServiceSet
	launcher *surface.MemoryLauncher
	tokens   *storage.MemoryStore
	session  *auth.Session
}

func newHarness(t *testing.T, cfg auth.Config) *harness {
	t.Helper()

	b := &backend{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	h := &harness{
		backend:  b,
		bus:      event.NewBus(nil),
		creds:    credential.NewStore(apiKey),
		launcher: surface.NewMemoryLauncher(),
		tokens:   storage.NewMemoryStore(),
	}
	h.services = api.NewServiceSet(api.Config{BaseURL: srv.URL}, chain.MustConfig(chain.Solana, chain.SolanaDevnet))
	h.services.Each(func(c *api.Client) { h.creds.Attach(c) })

	surf := surface.New(h.bus, surface.Config{BaseURL: "https://auth.example.com", Launcher: h.launcher})
	t.Cleanup(surf.Shutdown)

	if cfg.Tokens == nil {
		cfg.Tokens = h.tokens
	}
	h.session = auth.NewSession(h.bus, h.creds, api.NewAuthService(h.services.Auth), surf, cfg)
	t.Cleanup(h.session.Close)
	return h
}

// autoLogin makes every launched window answer with a login frame.
func (h *harness) autoLogin(access, refresh string) {
	h.launcher.OnLaunch = func(w *surface.MemoryWindow) {
		go func() {
			_ = w.Deliver(wire.MustEncode(wire.NameAuthLogin, w.ID(), wire.LoginPayload{
				AccessToken:  access,
				RefreshToken: refresh,
			}))
		}()
	}
}

func (h *harness) walletCall(t *testing.T) []string {
	t.Helper()
	require.NoError(t, h.services.Wallet.Do(context.Background(), http.MethodGet, "/tokens", nil, nil))
	return h.backend.lastWalletAuth()
}

func timeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func TestSession_LoginRoundTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	h.autoLogin("A", "R")

	var emitted []event.Event
	var mu sync.Mutex
	for _, ev := range []event.Event{event.Login, event.RefreshToken} {
		h.bus.Subscribe(ev, func(_ context.Context, ev event.Event, _ any) {
			mu.Lock()
			defer mu.Unlock()
			emitted = append(emitted, ev)
		})
	}

	res, err := h.session.Login(timeout(t, 2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, auth.LoginCompleted, res.Status)
	assert.Equal(t, "R", res.RefreshToken)
	assert.Equal(t, int64(1), res.User.ID)
	addr, ok := res.User.Address(chain.Polygon)
	assert.True(t, ok)
	assert.Equal(t, "0xE1", addr)

	assert.Equal(t, auth.Authenticated, h.session.State())
	assert.Equal(t, []string{"Bearer A"}, h.walletCall(t))

	stored, err := h.tokens.Get(context.Background(), credential.StorageKey(apiKey))
	require.NoError(t, err)
	assert.Equal(t, "R", stored)

	mu.Lock()
	assert.Equal(t, []event.Event{event.RefreshToken, event.Login}, emitted)
	mu.Unlock()

	require.Eventually(t, func() bool { return h.launcher.Last().Closed() }, time.Second, 5*time.Millisecond)
}

func TestSession_ReloginDoesNotStackCredentials(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})

	h.autoLogin("A1", "R1")
	_, err := h.session.Login(timeout(t, 2*time.Second))
	require.NoError(t, err)

	h.autoLogin("A2", "R2")
	_, err = h.session.Login(timeout(t, 2*time.Second))
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer A2"}, h.walletCall(t))
	h.services.Each(func(c *api.Client) {
		assert.Equal(t, 1, c.DecoratorCount(), c.Service())
	})
}

func TestSession_ConcurrentLoginSupersedesEarlier(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	var mu sync.Mutex
	logins := 0
	h.bus.Subscribe(event.Login, func(context.Context, event.Event, any) {
		mu.Lock()
		defer mu.Unlock()
		logins++
	})

	type outcome struct {
		res auth.LoginResult
		err error
	}
	start := func() <-chan outcome {
		ch := make(chan outcome, 1)
		go func() {
			res, err := h.session.Login(timeout(t, 2*time.Second))
			ch <- outcome{res: res, err: err}
		}()
		return ch
	}

	first := start()
	require.Eventually(t, func() bool { return len(h.launcher.Launched()) == 1 }, time.Second, 5*time.Millisecond)
	second := start()
	require.Eventually(t, func() bool { return len(h.launcher.Launched()) == 2 }, time.Second, 5*time.Millisecond)

	earlier := <-first
	assert.Equal(t, auth.LoginCancelled, earlier.res.Status)
	require.ErrorIs(t, earlier.err, auth.ErrCancelled)
	require.ErrorIs(t, earlier.err, auth.ErrSuperseded)
	assert.True(t, h.launcher.Launched()[0].Closed())

	win := h.launcher.Launched()[1]
	require.NoError(t, win.Deliver(wire.MustEncode(wire.NameAuthLogin, win.ID(), wire.LoginPayload{
		AccessToken:  "A2",
		RefreshToken: "R2",
	})))

	latest := <-second
	require.NoError(t, latest.err)
	assert.Equal(t, auth.LoginCompleted, latest.res.Status)

	assert.Equal(t, []string{"Bearer A2"}, h.walletCall(t))
	h.services.Each(func(c *api.Client) {
		assert.Equal(t, 1, c.DecoratorCount(), c.Service())
	})
	meCalls, _ := h.backend.counts()
	assert.Equal(t, 1, meCalls)
	mu.Lock()
	assert.Equal(t, 1, logins)
	mu.Unlock()
}

func expiringToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}

func TestSession_FetchUserRefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	h.autoLogin(expiringToken(t, time.Now().Add(10*time.Second)), "good")
	_, err := h.session.Login(timeout(t, 2*time.Second))
	require.NoError(t, err)

	_, err = h.session.FetchUser(context.Background())
	require.NoError(t, err)

	_, refreshes := h.backend.counts()
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, "R2", h.session.RefreshToken())
	assert.Equal(t, []string{"Bearer A2"}, h.walletCall(t))
}

func TestSession_RefreshIfExpiredKeepsFreshToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	fresh := expiringToken(t, time.Now().Add(time.Hour))
	h.autoLogin(fresh, "good")
	_, err := h.session.Login(timeout(t, 2*time.Second))
	require.NoError(t, err)

	refreshed, err := h.session.RefreshIfExpired(context.Background())
	require.NoError(t, err)
	assert.False(t, refreshed)

	_, refreshes := h.backend.counts()
	assert.Zero(t, refreshes)
	assert.Equal(t, []string{"Bearer " + fresh}, h.walletCall(t))
}

func TestSession_LogoutThenFailedLogin(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	h.autoLogin("A", "R")
	_, err := h.session.Login(timeout(t, 2*time.Second))
	require.NoError(t, err)

	require.NoError(t, h.session.Logout(context.Background()))
	assert.Equal(t, auth.LoggedOut, h.session.State())
	assert.Empty(t, h.walletCall(t))

	h.backend.setMeFails(true)
	h.autoLogin("B", "RB")
	res, err := h.session.Login(timeout(t, 2*time.Second))
	require.ErrorIs(t, err, auth.ErrLoginFailed)
	assert.Equal(t, auth.LoginFailed, res.Status)
	assert.Empty(t, h.walletCall(t))

	_, ok := h.session.User()
	assert.False(t, ok)
}

func TestSession_LoginCancelled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	// The user dismisses the window; that alone must not resolve the flow.
	h.launcher.OnLaunch = func(w *surface.MemoryWindow) {
		go func() { _ = w.Deliver(wire.MustEncode(wire.NameAuthClose, w.ID(), nil)) }()
	}

	res, err := h.session.Login(timeout(t, 100*time.Millisecond))
	assert.Equal(t, auth.LoginCancelled, res.Status)
	assert.ErrorIs(t, err, auth.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, auth.Uninitialized, h.session.State())
	assert.Empty(t, h.creds.AccessToken())
}

func TestSession_LoginUnavailable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	h.launcher.SetUnavailable(true)

	res, err := h.session.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.LoginUnavailable, res.Status)
}

func TestSession_RestoreOnReady(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	require.NoError(t, h.tokens.Set(context.Background(), credential.StorageKey(apiKey), "good"))

	var updated auth.User
	h.bus.Subscribe(event.UpdateUser, func(_ context.Context, _ event.Event, payload any) {
		updated = payload.(auth.User)
	})

	h.bus.Emit(context.Background(), event.Ready, nil)

	assert.Equal(t, auth.Authenticated, h.session.State())
	assert.Equal(t, int64(2), updated.ID)
	assert.Equal(t, "R2", h.session.RefreshToken())
	assert.Equal(t, []string{"Bearer A2"}, h.walletCall(t))

	stored, err := h.tokens.Get(context.Background(), h.session.StorageKey())
	require.NoError(t, err)
	assert.Equal(t, "R2", stored)
}

func TestSession_RestoreFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{RefreshToken: "bad"})
	h.bus.Emit(context.Background(), event.Ready, nil)
	assert.Equal(t, auth.Uninitialized, h.session.State())

	_, err := h.session.Restore(context.Background(), "bad")
	require.ErrorIs(t, err, auth.ErrRestoreFailed)
	_, remote := api.IsRemote(err)
	assert.True(t, remote)
}

func TestSession_NoTokenNoRestore(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	h.bus.Emit(context.Background(), event.Ready, nil)
	assert.Equal(t, auth.Uninitialized, h.session.State())
}

func TestSession_ExplicitCredentials(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{AccessToken: "preset"})
	assert.Equal(t, auth.Authenticated, h.session.State())
	assert.Equal(t, []string{"Bearer preset"}, h.walletCall(t))

	// Ready does not restore over explicit credentials.
	require.NoError(t, h.tokens.Set(context.Background(), h.session.StorageKey(), "good"))
	h.bus.Emit(context.Background(), event.Ready, nil)
	assert.Equal(t, []string{"Bearer preset"}, h.walletCall(t))

	s := newHarness(t, auth.Config{SecretAccessKey: "sk"})
	assert.True(t, s.creds.HasSecretKey())
	assert.Equal(t, auth.Authenticated, s.session.State())
}

func TestSession_LoginWithPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	res, err := h.session.LoginWithPassword(context.Background(), "u@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, auth.LoginCompleted, res.Status)
	assert.Equal(t, int64(3), res.User.ID)
	assert.Equal(t, []string{"Bearer AP"}, h.walletCall(t))
	assert.Nil(t, h.launcher.Last())
}

func TestSession_Logout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{AccessToken: "preset"})
	h.backend.mu.Lock()
	h.backend.logoutFail = true
	h.backend.mu.Unlock()
	require.NoError(t, h.tokens.Set(context.Background(), h.session.StorageKey(), "R"))

	loggedOut := false
	h.bus.Subscribe(event.Logout, func(context.Context, event.Event, any) { loggedOut = true })

	require.NoError(t, h.session.Logout(context.Background()))
	assert.True(t, loggedOut)
	assert.Equal(t, auth.LoggedOut, h.session.State())

	_, err := h.tokens.Get(context.Background(), h.session.StorageKey())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSession_FetchUser(t *testing.T) {
	t.Parallel()

	h := newHarness(t, auth.Config{})
	_, err := h.session.FetchUser(context.Background())
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)

	h = newHarness(t, auth.Config{AccessToken: "preset"})
	user, err := h.session.FetchUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u@x.io", user.Email)

	// Callers get copies.
	user.Addresses[chain.Solana] = "tampered"
	again, ok := h.session.User()
	require.True(t, ok)
	assert.Equal(t, "So1", again.Addresses[chain.Solana])
}
