package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/mirrorworld"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/storage"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
)

const (
	redisTokenPrefix       = "mwctl:"
	metricsEndpoint        = "/metrics"
	metricsShutdownTimeout = 5 * time.Second
)

type app struct {
	cfg      *Config
	lg       log.Logger
	out      io.Writer
	sdk      *mirrorworld.SDK
	registry *prometheus.Registry
	closers  []func() error
}

func newApp(ctx context.Context, cfg *Config, chainName, network string, out io.Writer) (*app, error) {
	a := &app{
		cfg: cfg,
		lg:  log.NewZapLogger(cfg.Log).WithName("mwctl"),
		out: out,
	}

	tokens, err := a.tokenStore()
	if err != nil {
		return nil, err
	}
	publisher, err := a.publisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := mirrorworld.Options{
		APIKey:          cfg.APIKey,
		Chain:           chain.Chain(chainName),
		Network:         chain.Network(network),
		SecretAccessKey: cfg.SecretAccessKey,
		Mode:            surface.Mode(cfg.Mode),
		AuthBaseURL:     cfg.AuthBaseURL,
		APIBaseURL:      cfg.APIBaseURL,
		Launcher:        a.launcher(),
		TokenStore:      tokens,
		Logger:          a.lg,
		RateLimit:       rate.Limit(cfg.RateLimit),
		Publisher:       publisher,
		EventsTopic:     cfg.EventsTopic,
	}
	if cfg.MetricsAddr != "" {
		a.registry = prometheus.NewRegistry()
		opts.Registerer = a.registry
	}

	sdk, err := mirrorworld.New(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sdk = sdk

	// A restored or configured access token may be close to expiry; refresh
	// it now rather than fail the first call.
	if refreshed, err := sdk.Auth().RefreshIfExpired(ctx); err != nil {
		a.lg.Warn("failed to refresh expiring access token", "error", err)
	} else if refreshed {
		a.lg.Info("refreshed expiring access token")
	}
	return a, nil
}

func (a *app) tokenStore() (storage.TokenStore, error) {
	if a.cfg.RedisURL != "" {
		client, err := newRedisClient(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return storage.NewRedisStore(client, redisTokenPrefix, 0), nil
	}

	if err := os.MkdirAll(a.cfg.configDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	store, err := storage.NewSQLStore(a.cfg.TokenDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) publisher() (message.Publisher, error) {
	if a.cfg.EventsRedisURL == "" {
		return nil, nil
	}
	client, err := newRedisClient(a.cfg.EventsRedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, event.WatermillLogger(a.lg))
	if err != nil {
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)
	return publisher, nil
}

// launcher relays wallet windows over MW_RELAY_URL. Without a relay every
// flow reports the surface as unavailable.
func (a *app) launcher() surface.Launcher {
	cfg := surface.DefaultWebsocketLauncherConfig
	cfg.RelayURL = a.cfg.RelayURL
	cfg.Navigate = func(req surface.OpenRequest) error {
		_, err := fmt.Fprintf(a.out, "Open this URL to continue: %s\n", req.URL)
		return err
	}
	return surface.NewWebsocketLauncher(cfg)
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// run executes fn, serving metrics next to it when MW_METRICS_ADDR is set.
func (a *app) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.registry == nil {
		return fn(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsEndpoint, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		a.lg.Info("prometheus metrics available", "listenAddr", a.cfg.MetricsAddr, "endpoint", metricsEndpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failure: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-done:
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer close(done)
		return fn(gctx)
	})
	return g.Wait()
}

func (a *app) Close() {
	if a.sdk != nil {
		a.sdk.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.lg.Warn("failed to release resource", "error", err)
		}
	}
}
