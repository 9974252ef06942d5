// Package mirrorworld assembles one SDK instance: the credential store, the
// service clients, the wallet surface, the session, the approval broker and
// the chain dispatcher, all sharing one event bus.
package mirrorworld

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/auth"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/credential"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/dispatch"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/metrics"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
)

// SDK is one configured client. Instances share nothing.
type SDK struct {
	bus        *event.Bus
	creds      *credential.Store
	services   *api.ServiceSet
	surface    *surface.Surface
	session    *auth.Session
	broker     *approval.Broker
	dispatcher *dispatch.Dispatcher
	forwarder  *event.Forwarder
	metrics    *metrics.Metrics
	lg         log.Logger
}

// New validates opts, wires the components and emits Ready, which restores a
// persisted session. Only configuration errors are returned; a failed
// restore or auto login is logged and leaves the session unauthenticated.
func New(ctx context.Context, opts Options) (*SDK, error) {
	opts = opts.withDefaults()
	cfg, err := opts.validate()
	if err != nil {
		return nil, err
	}

	lg := log.OrNoop(opts.Logger).WithName("mirrorworld")
	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.NewMetricsWithRegistry(opts.Registerer)
	}

	s := &SDK{
		bus:     event.NewBus(lg),
		creds:   credential.NewStore(opts.APIKey),
		metrics: m,
		lg:      lg,
	}

	s.services = api.NewServiceSet(api.Config{
		BaseURL:    opts.APIBaseURL,
		Version:    opts.Version,
		HTTPClient: opts.HTTPClient,
		RateLimit:  opts.RateLimit,
		Metrics:    m,
		Logger:     lg,
	}, cfg)
	s.services.Each(func(c *api.Client) { s.creds.Attach(c) })

	s.surface = surface.New(s.bus, surface.Config{
		BaseURL:   opts.AuthBaseURL,
		Mode:      opts.Mode,
		UserAgent: opts.UserAgent,
		Launcher:  opts.Launcher,
		Metrics:   m,
		Logger:    lg,
	})

	s.session = auth.NewSession(s.bus, s.creds, api.NewAuthService(s.services.Auth), s.surface, auth.Config{
		AccessToken:     opts.AccessToken,
		SecretAccessKey: opts.SecretAccessKey,
		RefreshToken:    opts.RefreshToken,
		Tokens:          opts.TokenStore,
		Metrics:         m,
		Logger:          lg,
	})

	s.broker = approval.NewBroker(s.bus, s.creds, api.NewActionService(s.services.Auth), s.surface, approval.Config{
		Metrics: m,
		Logger:  lg,
	})

	s.dispatcher = dispatch.New(s.services, s.broker, cfg, dispatch.Config{Metrics: m, Logger: lg})

	if opts.Publisher != nil {
		instance := opts.InstanceID
		if instance == "" {
			instance = uuid.NewString()
		}
		s.forwarder = event.NewForwarder(s.bus, opts.Publisher, opts.EventsTopic, instance, lg)
	}

	ctx = log.SetContextLogger(ctx, lg)
	s.bus.Emit(ctx, event.Ready, cfg)

	if creds := opts.AutoLoginCredentials; creds != nil && s.session.State() != auth.Authenticated {
		if _, err := s.session.LoginWithPassword(ctx, creds.Email, creds.Password); err != nil {
			lg.Warn("auto login failed", "error", err)
		}
	}

	lg.Info("sdk ready", "config", cfg.String(), "mode", s.surface.Mode(), "state", s.session.State())
	return s, nil
}

// Auth returns the session.
func (s *SDK) Auth() *auth.Session {
	return s.session
}

// Approvals returns the approval broker.
func (s *SDK) Approvals() *approval.Broker {
	return s.broker
}

func (s *SDK) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

func (s *SDK) Solana() *dispatch.Solana {
	return s.dispatcher.Solana()
}

func (s *SDK) EVM() *dispatch.EVM {
	return s.dispatcher.EVM()
}

func (s *SDK) Sui() *dispatch.Sui {
	return s.dispatcher.Sui()
}

// Bus returns the event bus shared by every component of this instance.
func (s *SDK) Bus() *event.Bus {
	return s.bus
}

func (s *SDK) Surface() *surface.Surface {
	return s.surface
}

func (s *SDK) Services() *api.ServiceSet {
	return s.services
}

func (s *SDK) Credentials() *credential.Store {
	return s.creds
}

// ChainConfig returns the active chain config.
func (s *SDK) ChainConfig() chain.Config {
	return s.dispatcher.Config()
}

// SetChainConfig switches chains. cfg is validated against the allow-list.
func (s *SDK) SetChainConfig(cfg chain.Config) error {
	valid, err := chain.NewConfig(cfg.Chain, cfg.Network)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	s.dispatcher.SetConfig(valid)
	return nil
}

// Close detaches every component from the bus and closes the live surface.
// Outstanding flows keep waiting for their contexts.
func (s *SDK) Close() {
	if s.forwarder != nil {
		s.forwarder.Close()
	}
	s.broker.Close()
	s.session.Close()
	s.surface.Shutdown()
}
