// Package credential installs the API key and bearer credentials on every
// backend client the SDK talks to.
package credential

import (
	"net/http"
	"sync"
)

// Header names set by the installed decorators.
const (
	HeaderAPIKey        = "x-api-key"
	HeaderAuthorization = "Authorization"
)

// DecoratorKey is the single slot a Store occupies on a Target. Installing new
// credentials overwrites this slot, so decorators never stack.
const DecoratorKey = "credentials"

// Decorator mutates an outgoing request.
type Decorator func(req *http.Request)

// Target is an HTTP client that accepts request decorators by key.
type Target interface {
	SetDecorator(key string, fn Decorator)
	RemoveDecorator(key string)
}

// Credentials is a token pair issued by login or refresh.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store owns the credential decorators of every attached target.
type Store struct {
	apiKey string

	mu        sync.RWMutex // protects the fields below
	targets   []Target
	bearer    string
	secretKey bool
}

// NewStore creates a Store that always sends apiKey.
func NewStore(apiKey string) *Store {
	return &Store{apiKey: apiKey}
}

// APIKey returns the key the store was created with.
func (s *Store) APIKey() string {
	return s.apiKey
}

// Attach registers t and installs the current credentials on it.
func (s *Store) Attach(t Target) *Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.targets = append(s.targets, t)
	t.SetDecorator(DecoratorKey, s.decoratorLocked())
	return &Registration{store: s, target: t}
}

// SetCredentials installs accessToken as the bearer credential on every
// attached target, replacing whatever was installed before. An empty token
// installs the API key only.
func (s *Store) SetCredentials(accessToken string) []*Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bearer = accessToken
	s.secretKey = false
	return s.installLocked()
}

// SetSecretKey installs a long-lived service secret. Actions are not routed
// through user approval while a secret key is installed.
func (s *Store) SetSecretKey(secret string) []*Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bearer = secret
	s.secretKey = secret != ""
	return s.installLocked()
}

// ClearCredentials drops the bearer credential on every target, leaving only
// the API key header.
func (s *Store) ClearCredentials() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bearer = ""
	s.secretKey = false
	s.installLocked()
}

// HasSecretKey reports whether a service secret is installed.
func (s *Store) HasSecretKey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secretKey
}

// Authenticated reports whether any bearer credential is installed.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bearer != ""
}

// AccessToken returns the installed bearer credential.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bearer
}

func (s *Store) installLocked() []*Registration {
	fn := s.decoratorLocked()
	regs := make([]*Registration, 0, len(s.targets))
	for _, t := range s.targets {
		t.SetDecorator(DecoratorKey, fn)
		regs = append(regs, &Registration{store: s, target: t})
	}
	return regs
}

// decoratorLocked captures the credentials by value so a decorator handed out
// earlier keeps sending what it was built with, never a later token.
func (s *Store) decoratorLocked() Decorator {
	apiKey, bearer := s.apiKey, s.bearer
	return func(req *http.Request) {
		req.Header.Set(HeaderAPIKey, apiKey)
		if bearer != "" {
			req.Header.Set(HeaderAuthorization, "Bearer "+bearer)
		} else {
			req.Header.Del(HeaderAuthorization)
		}
	}
}

func (s *Store) detach(t Target) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.targets {
		if cur == t {
			s.targets = append(s.targets[:i:i], s.targets[i+1:]...)
			break
		}
	}
	t.RemoveDecorator(DecoratorKey)
}

// Registration is the handle of one target's installation.
type Registration struct {
	store  *Store
	target Target
	once   sync.Once
}

// Target returns the registered client.
func (r *Registration) Target() Target {
	return r.target
}

// Dispose removes the store's decorator from the target and stops updating it.
func (r *Registration) Dispose() {
	r.once.Do(func() { r.store.detach(r.target) })
}
