// Package api is the HTTP transport of the SDK.
//
// Each backend service gets its own Client, resolved once in a ServiceSet.
// A Client applies the credential decorators installed on it, tags requests
// with the protocol version, and unwraps the {data, message, status, code}
// envelope of every response.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/credential"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/metrics"
)

// Request headers set by the client.
const (
	HeaderRequestID          = "x-request-id"
	HeaderProtocol           = "x-sdk-protocol"
	HeaderAuthorizationToken = "x-authorization-token"
	HeaderRefreshToken       = "x-refresh-token"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Version is the protocol version tag of a request.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// Config is shared by every Client of a ServiceSet.
type Config struct {
	// BaseURL is the API origin, e.g. https://api.mirrorworld.fun.
	BaseURL string
	Version Version
	// HTTPClient is copied; its transport is wrapped for tracing.
	HTTPClient *http.Client
	// RateLimit caps requests per second per client. Zero disables limiting.
	RateLimit rate.Limit
	Burst     int
	Metrics   *metrics.Metrics
	Logger    log.Logger
}

var _ credential.Target = (*Client)(nil)

// Client talks to one backend service.
type Client struct {
	service    Service
	version    Version
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	lg         log.Logger

	mu         sync.RWMutex // protects baseURL and decorators
	baseURL    string
	decorators map[string]credential.Decorator
}

// NewClient creates a client for service rooted at baseURL.
func NewClient(service Service, baseURL string, cfg Config) *Client {
	version := cfg.Version
	if version == "" {
		version = V2
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	return &Client{
		service:    service,
		version:    version,
		httpClient: tracedClient(cfg.HTTPClient),
		limiter:    limiter,
		metrics:    cfg.Metrics,
		lg:         log.OrNoop(cfg.Logger).WithName("api").WithKV("service", string(service)),
		baseURL:    strings.TrimRight(baseURL, "/"),
		decorators: make(map[string]credential.Decorator),
	}
}

func tracedClient(base *http.Client) *http.Client {
	var c http.Client
	if base != nil {
		c = *base
	} else {
		c.Timeout = DefaultTimeout
	}

	rt := c.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c.Transport = otelhttp.NewTransport(rt)
	return &c
}

func (c *Client) Service() Service { return c.service }
func (c *Client) Version() Version { return c.version }

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL re-targets the client, e.g. after a chain switch.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// SetDecorator installs fn under key, replacing any decorator with that key.
func (c *Client) SetDecorator(key string, fn credential.Decorator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decorators[key] = fn
}

func (c *Client) RemoveDecorator(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.decorators, key)
}

// DecoratorCount reports how many decorators are installed.
func (c *Client) DecoratorCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.decorators)
}

// CallOption customizes one request.
type CallOption func(*callOptions)

type callOptions struct {
	header http.Header
	query  url.Values
}

// WithAuthorizationToken attaches an approval token. An empty token is ignored.
func WithAuthorizationToken(token string) CallOption {
	return func(o *callOptions) {
		if token != "" {
			o.header.Set(HeaderAuthorizationToken, token)
		}
	}
}

func WithHeader(key, value string) CallOption {
	return func(o *callOptions) { o.header.Set(key, value) }
}

func WithQuery(query url.Values) CallOption {
	return func(o *callOptions) {
		for k, vs := range query {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// Do sends body (JSON encoded, nil for none) to path and decodes the data
// field of the envelope into out (nil to discard).
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	co := callOptions{header: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(&co)
	}

	req, err := c.newRequest(ctx, method, path, body, co)
	if err != nil {
		return err
	}

	lg := log.FromContextOr(ctx, c.lg)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveHTTP(string(c.service), method, "error", time.Since(start))
		lg.Warn("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	elapsed := time.Since(start)
	c.metrics.ObserveHTTP(string(c.service), method, strconv.Itoa(res.StatusCode), elapsed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	lg.Debug("request done",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"elapsed", elapsed.String(),
		"requestId", req.Header.Get(HeaderRequestID),
	)

	env, err := decodeEnvelope(c.service, path, res.StatusCode, raw)
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, co callOptions) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMarshalRequest, err)
		}
		reader = bytes.NewReader(buf)
	}

	c.mu.RLock()
	target := c.baseURL + path
	decorators := c.sortedDecoratorsLocked()
	c.mu.RUnlock()

	if len(co.query) > 0 {
		target += "?" + co.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarshalRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderProtocol, string(c.version))
	req.Header.Set(HeaderRequestID, uuid.NewString())
	for k, vs := range co.header {
		req.Header[k] = vs
	}
	for _, d := range decorators {
		d(req)
	}
	return req, nil
}

func (c *Client) sortedDecoratorsLocked() []credential.Decorator {
	keys := make([]string, 0, len(c.decorators))
	for k := range c.decorators {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]credential.Decorator, len(keys))
	for i, k := range keys {
		out[i] = c.decorators[k]
	}
	return out
}
