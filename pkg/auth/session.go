// Package auth drives the login session: restore from a persisted refresh
// token, interactive login through the wallet surface, and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/credential"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/metrics"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/storage"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/wire"
)

// DefaultLoginPath is the wallet UI path of the login flow.
const DefaultLoginPath = "/auth/login"

// DefaultRefreshSkew is how early an expiring access token is refreshed.
const DefaultRefreshSkew = 30 * time.Second

// State of a Session.
type State int

const (
	Uninitialized State = iota
	Restoring
	Authenticated
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case LoggedOut:
		return "logged_out"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LoginStatus is how a login attempt ended.
type LoginStatus string

const (
	LoginCompleted   LoginStatus = "completed"
	LoginCancelled   LoginStatus = "cancelled"
	LoginUnavailable LoginStatus = "unavailable"
	LoginFailed      LoginStatus = "failed"
)

// LoginResult is returned by Login and LoginWithPassword.
type LoginResult struct {
	Status       LoginStatus
	User         User
	RefreshToken string
}

// AuthAPI is the backend the session talks to. *api.AuthService implements it.
type AuthAPI interface {
	LoginWithPassword(ctx context.Context, email, password string) (api.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (api.TokenResponse, error)
	Me(ctx context.Context) (api.User, error)
	Logout(ctx context.Context) error
}

// Surface opens the wallet UI. *surface.Surface implements it.
type Surface interface {
	Open(ctx context.Context, path string, autoClose bool) (surface.Window, error)
	Finish(win surface.Window)
}

// Config configures a Session.
type Config struct {
	// AccessToken or SecretAccessKey authenticate the session at construction.
	AccessToken     string
	SecretAccessKey string
	// RefreshToken is restored on Ready instead of the persisted one.
	RefreshToken string
	LoginPath    string
	// RefreshSkew refreshes an access token this long before it expires.
	// Zero means DefaultRefreshSkew.
	RefreshSkew time.Duration
	// Now is used to judge token expiry.
	Now func() time.Time
	// Tokens persists the refresh token. Nil keeps it in memory.
	Tokens  storage.TokenStore
	Metrics *metrics.Metrics
	Logger  log.Logger
}

// Session is safe for concurrent use.
type Session struct {
	cfg     Config
	bus     *event.Bus
	creds   *credential.Store
	api     AuthAPI
	surface Surface
	tokens  storage.TokenStore
	key     string
	lg      log.Logger

	mu           sync.RWMutex // protects the fields below
	state        State
	user         *User
	refreshToken string

	loginMu     sync.Mutex
	activeLogin *loginAttempt

	readySub event.Subscription
}

// NewSession creates a session and subscribes it to Ready on bus.
func NewSession(bus *event.Bus, creds *credential.Store, authAPI AuthAPI, surf Surface, cfg Config) *Session {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.RefreshSkew <= 0 {
		cfg.RefreshSkew = DefaultRefreshSkew
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = storage.NewMemoryStore()
	}

	s := &Session{
		cfg:     cfg,
		bus:     bus,
		creds:   creds,
		api:     authAPI,
		surface: surf,
		tokens:  tokens,
		key:     credential.StorageKey(creds.APIKey()),
		lg:      log.OrNoop(cfg.Logger).WithName("auth"),
	}

	switch {
	case cfg.SecretAccessKey != "":
		creds.SetSecretKey(cfg.SecretAccessKey)
		s.state = Authenticated
	case cfg.AccessToken != "":
		creds.SetCredentials(cfg.AccessToken)
		s.state = Authenticated
	}

	s.readySub = bus.Subscribe(event.Ready, func(ctx context.Context, _ event.Event, _ any) {
		s.onReady(ctx)
	})
	return s
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the current user.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return s.user.clone(), true
}

// RefreshToken returns the refresh token of the current session.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// StorageKey is the key the refresh token is persisted under.
func (s *Session) StorageKey() string {
	return s.key
}

// Close detaches the session from the bus.
func (s *Session) Close() {
	s.readySub.Unsubscribe()
}

func (s *Session) onReady(ctx context.Context) {
	if s.State() == Authenticated {
		return
	}

	token := s.cfg.RefreshToken
	if token == "" {
		stored, err := s.tokens.Get(ctx, s.key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return
		case err != nil:
			s.lg.Warn("failed to read persisted refresh token", "error", err)
			return
		}
		token = stored
	}

	if _, err := s.Restore(ctx, token); err != nil {
		s.lg.Warn("session restore failed", "error", err)
	}
}

// Restore exchanges refreshToken for fresh credentials. On failure the
// session drops back to Uninitialized; there is no retry.
func (s *Session) Restore(ctx context.Context, refreshToken string) (User, error) {
	s.setState(Restoring)

	res, err := s.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		s.setState(Uninitialized)
		s.cfg.Metrics.RecordRefresh(metrics.OutcomeFailure)
		return User{}, fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}
	if res.RefreshToken == "" {
		res.RefreshToken = refreshToken
	}

	s.creds.SetCredentials(res.AccessToken)
	user := newUser(res.User)
	s.persist(ctx, res.RefreshToken)
	s.authenticate(user, res.RefreshToken)
	s.cfg.Metrics.RecordRefresh(metrics.OutcomeSuccess)

	s.bus.Emit(ctx, event.RefreshToken, res.RefreshToken)
	s.bus.Emit(ctx, event.UpdateUser, user.clone())
	s.bus.Emit(ctx, event.Login, user.clone())
	s.lg.Info("session restored", "userId", user.ID)
	return user, nil
}

// loginAttempt guards the credential install of one Login call, so a payload
// that arrives after the call gave up, or after a newer Login took over,
// changes nothing.
type loginAttempt struct {
	mu         sync.Mutex
	done       bool
	payload    chan *wire.LoginPayload
	superseded chan struct{}
}

func newLoginAttempt() *loginAttempt {
	return &loginAttempt{
		payload:    make(chan *wire.LoginPayload, 1),
		superseded: make(chan struct{}),
	}
}

// resolve claims the attempt for p. install runs under the attempt lock.
func (a *loginAttempt) resolve(p *wire.LoginPayload, install func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return
	}
	a.done = true
	install()
	a.payload <- p
}

func (a *loginAttempt) supersede() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return
	}
	a.done = true
	close(a.superseded)
}

// abandon ends the attempt. It returns the payload of a frame that resolved
// the attempt first, if any.
func (a *loginAttempt) abandon() (*wire.LoginPayload, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.done {
		a.done = true
		return nil, false
	}
	select {
	case p := <-a.payload:
		return p, true
	default:
		return nil, false
	}
}

// beginLogin makes attempt the active one. An earlier attempt still waiting
// for its frame ends as cancelled; its window is replaced by the new one.
func (s *Session) beginLogin(attempt *loginAttempt) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	if s.activeLogin != nil {
		s.activeLogin.supersede()
	}
	s.activeLogin = attempt
}

func (s *Session) endLogin(attempt *loginAttempt) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	if s.activeLogin == attempt {
		s.activeLogin = nil
	}
}

// Login runs the interactive login flow. It returns when a login frame arrives,
// when ctx ends (LoginCancelled), or at once when no surface can be shown
// (LoginUnavailable). A dismissed surface does not end the flow. A second
// Login started before the first resolves takes over: the first returns
// LoginCancelled with ErrSuperseded.
func (s *Session) Login(ctx context.Context) (LoginResult, error) {
	attempt := newLoginAttempt()
	s.beginLogin(attempt)
	defer s.endLogin(attempt)

	sub := s.bus.SubscribeUI(func(_ context.Context, ev event.UIEvent) {
		if ev.Kind != event.UIMessage || ev.Message.Name != wire.NameAuthLogin {
			return
		}
		p, ok := ev.Message.Login()
		if !ok {
			return
		}
		// Installed before the relay moves on, so nothing issued after this
		// frame can go out with the previous credentials.
		attempt.resolve(p, func() { s.creds.SetCredentials(p.AccessToken) })
	})
	defer sub.Unsubscribe()

	win, err := s.surface.Open(ctx, s.cfg.LoginPath, true)
	if err != nil {
		s.cfg.Metrics.RecordLogin(metrics.OutcomeFailure)
		return LoginResult{Status: LoginFailed}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if win == nil {
		s.cfg.Metrics.RecordLogin(metrics.OutcomeUnavailable)
		return LoginResult{Status: LoginUnavailable}, nil
	}
	defer s.surface.Finish(win)

	select {
	case p := <-attempt.payload:
		return s.completeLogin(ctx, p.RefreshToken, nil)
	case <-attempt.superseded:
		s.cfg.Metrics.RecordLogin(metrics.OutcomeCancelled)
		return LoginResult{Status: LoginCancelled}, fmt.Errorf("%w: %w", ErrCancelled, ErrSuperseded)
	case <-ctx.Done():
	}

	if p, ok := attempt.abandon(); ok {
		// The frame won the race against ctx; finish what it started.
		return s.completeLogin(context.WithoutCancel(ctx), p.RefreshToken, nil)
	}

	s.cfg.Metrics.RecordLogin(metrics.OutcomeCancelled)
	return LoginResult{Status: LoginCancelled}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

// LoginWithPassword logs in with email credentials, without a surface.
func (s *Session) LoginWithPassword(ctx context.Context, email, password string) (LoginResult, error) {
	res, err := s.api.LoginWithPassword(ctx, email, password)
	if err != nil {
		s.cfg.Metrics.RecordLogin(metrics.OutcomeFailure)
		return LoginResult{Status: LoginFailed}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	s.creds.SetCredentials(res.AccessToken)
	var known *api.User
	if res.User.ID != 0 {
		known = &res.User
	}
	return s.completeLogin(ctx, res.RefreshToken, known)
}

// completeLogin runs after the access token is installed. A nil user is
// fetched from /me; if that fails the credentials are cleared again.
func (s *Session) completeLogin(ctx context.Context, refreshToken string, known *api.User) (LoginResult, error) {
	var profile api.User
	if known != nil {
		profile = *known
	} else {
		me, err := s.api.Me(ctx)
		if err != nil {
			s.creds.ClearCredentials()
			s.mu.Lock()
			s.state = Uninitialized
			s.user = nil
			s.refreshToken = ""
			s.mu.Unlock()
			s.cfg.Metrics.RecordLogin(metrics.OutcomeFailure)
			return LoginResult{Status: LoginFailed}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
		}
		profile = me
	}

	user := newUser(profile)
	s.persist(ctx, refreshToken)
	s.authenticate(user, refreshToken)
	s.cfg.Metrics.RecordLogin(metrics.OutcomeSuccess)

	s.bus.Emit(ctx, event.RefreshToken, refreshToken)
	s.bus.Emit(ctx, event.Login, user.clone())
	s.lg.Info("login completed", "userId", user.ID)

	return LoginResult{Status: LoginCompleted, User: user.clone(), RefreshToken: refreshToken}, nil
}

// Logout ends the session. The remote call is best effort; local teardown
// always happens and Logout always returns nil.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.lg.Warn("remote logout failed", "error", err)
	}

	s.creds.ClearCredentials()
	if err := s.tokens.Delete(ctx, s.key); err != nil {
		s.lg.Error("failed to delete persisted refresh token", "error", err)
	}

	s.mu.Lock()
	s.user = nil
	s.refreshToken = ""
	s.state = LoggedOut
	s.mu.Unlock()

	s.bus.Emit(ctx, event.Logout, nil)
	s.lg.Info("logged out")
	return nil
}

// FetchUser reloads the profile. It does not change the session state.
func (s *Session) FetchUser(ctx context.Context) (User, error) {
	if s.State() != Authenticated {
		return User{}, ErrNotAuthenticated
	}
	if _, err := s.RefreshIfExpired(ctx); err != nil {
		return User{}, err
	}

	me, err := s.api.Me(ctx)
	if err != nil {
		return User{}, err
	}
	user := newUser(me)

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.bus.Emit(ctx, event.UpdateUser, user.clone())
	return user.clone(), nil
}

// RefreshIfExpired restores the session from its refresh token when the
// installed access token expires within the refresh skew. It reports whether a
// refresh happened. Opaque tokens and secret keys are never refreshed.
func (s *Session) RefreshIfExpired(ctx context.Context) (bool, error) {
	if s.creds.HasSecretKey() {
		return false, nil
	}
	refreshToken := s.RefreshToken()
	if refreshToken == "" || !credential.Expired(s.creds.AccessToken(), s.cfg.RefreshSkew, s.cfg.Now()) {
		return false, nil
	}

	s.lg.Debug("access token expiring, refreshing")
	if _, err := s.Restore(ctx, refreshToken); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) authenticate(user User, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.refreshToken = refreshToken
	s.state = Authenticated
}

func (s *Session) persist(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := s.tokens.Set(ctx, s.key, refreshToken); err != nil {
		s.lg.Warn("failed to persist refresh token", "error", err)
	}
}
