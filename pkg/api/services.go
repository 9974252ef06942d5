package api

import (
	"fmt"
	"strings"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

// Service names a backend service.
type Service string

const (
	Auth        Service = "auth"
	Wallet      Service = "wallet"
	Asset       Service = "asset"
	Metadata    Service = "metadata"
	Marketplace Service = "marketplace"
)

// Services returns every service in resolution order.
func Services() []Service {
	return []Service{Auth, Wallet, Asset, Metadata, Marketplace}
}

// ChainScoped reports whether the service path carries the chain and network.
func (s Service) ChainScoped() bool {
	return s != Auth
}

// ServiceSet holds one Client per service. Every client exists from
// construction; there is no lazy lookup.
type ServiceSet struct {
	Auth        *Client
	Wallet      *Client
	Asset       *Client
	Metadata    *Client
	Marketplace *Client

	apiBase string
	version Version
}

// NewServiceSet resolves every service against cfg.BaseURL for chainCfg.
func NewServiceSet(cfg Config, chainCfg chain.Config) *ServiceSet {
	if cfg.Version == "" {
		cfg.Version = V2
	}
	s := &ServiceSet{
		apiBase: strings.TrimRight(cfg.BaseURL, "/"),
		version: cfg.Version,
	}
	for _, svc := range Services() {
		c := NewClient(svc, s.baseFor(svc, chainCfg), cfg)
		switch svc {
		case Auth:
			s.Auth = c
		case Wallet:
			s.Wallet = c
		case Asset:
			s.Asset = c
		case Metadata:
			s.Metadata = c
		case Marketplace:
			s.Marketplace = c
		}
	}
	return s
}

// baseFor is {apiBase}/{version}/auth for Auth and
// {apiBase}/{version}/{chain}/{network}/{service} for the rest.
func (s *ServiceSet) baseFor(svc Service, cfg chain.Config) string {
	if !svc.ChainScoped() {
		return fmt.Sprintf("%s/%s/%s", s.apiBase, s.version, svc)
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", s.apiBase, s.version, cfg.Chain, cfg.Network, svc)
}

// Get returns the client for svc.
func (s *ServiceSet) Get(svc Service) (*Client, error) {
	switch svc {
	case Auth:
		return s.Auth, nil
	case Wallet:
		return s.Wallet, nil
	case Asset:
		return s.Asset, nil
	case Metadata:
		return s.Metadata, nil
	case Marketplace:
		return s.Marketplace, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownService, svc)
}

// Each calls fn for every client in resolution order.
func (s *ServiceSet) Each(fn func(*Client)) {
	for _, c := range []*Client{s.Auth, s.Wallet, s.Asset, s.Metadata, s.Marketplace} {
		fn(c)
	}
}

// Rebase re-targets the chain scoped clients at cfg.
func (s *ServiceSet) Rebase(cfg chain.Config) {
	s.Each(func(c *Client) {
		if c.Service().ChainScoped() {
			c.SetBaseURL(s.baseFor(c.Service(), cfg))
		}
	})
}
