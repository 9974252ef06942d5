// Package dispatch gates and issues chain operations.
//
// Every operation declares the chain configs it runs under. Execute checks
// the active config, validates the body, obtains user approval when the
// operation needs it, and only then calls the backend.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/metrics"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/validation"
)

// Operation describes one backend call.
type Operation struct {
	Name    string
	Service api.Service
	Method  string
	Path    string
	Allow   chain.AllowList
	// Action, when set, requires user approval before the call.
	Action approval.ActionType
}

// Request carries the per-call inputs of an Operation.
type Request struct {
	// Body is sent as JSON and validated first. Nil sends no body.
	Body  any
	Query url.Values
	// Value is the amount shown to the user when approving.
	Value decimal.Decimal
}

// Approver obtains user approval. *approval.Broker implements it.
type Approver interface {
	RequestApproval(ctx context.Context, req approval.ActionRequest) (approval.Approval, error)
}

type Config struct {
	Metrics *metrics.Metrics
	Logger  log.Logger
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	services *api.ServiceSet
	approver Approver
	cfg      atomic.Pointer[chain.Config]
	validate *validator.Validate
	metrics  *metrics.Metrics
	lg       log.Logger

	solana *Solana
	evm    *EVM
	sui    *Sui
}

func New(services *api.ServiceSet, approver Approver, cfg chain.Config, conf Config) *Dispatcher {
	d := &Dispatcher{
		services: services,
		approver: approver,
		validate: validation.New(),
		metrics:  conf.Metrics,
		lg:       log.OrNoop(conf.Logger).WithName("dispatch"),
	}
	d.cfg.Store(&cfg)
	d.solana = newSolana(d)
	d.evm = newEVM(d)
	d.sui = newSui(d)
	return d
}

// Config returns the active chain config.
func (d *Dispatcher) Config() chain.Config {
	return *d.cfg.Load()
}

// SetConfig switches the active chain config and re-targets the chain scoped
// services. The next call is gated against cfg.
func (d *Dispatcher) SetConfig(cfg chain.Config) {
	d.cfg.Store(&cfg)
	d.services.Rebase(cfg)
	d.lg.Info("chain config switched", "config", cfg.String())
}

func (d *Dispatcher) Solana() *Solana { return d.solana }
func (d *Dispatcher) EVM() *EVM       { return d.evm }
func (d *Dispatcher) Sui() *Sui       { return d.sui }

// Execute runs op and decodes the response data into out.
func (d *Dispatcher) Execute(ctx context.Context, op Operation, req Request, out any) error {
	cfg := d.Config()
	if err := d.gate(op, cfg); err != nil {
		return err
	}

	if req.Body != nil {
		if err := d.validate.Struct(req.Body); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrInvalidRequest, op.Name, validation.Describe(err))
		}
	}

	var token string
	if op.Action != "" {
		params, err := asParams(req.Body)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidRequest, op.Name, err)
		}
		granted, err := d.approver.RequestApproval(ctx, approval.ActionRequest{
			Type:   op.Action,
			Value:  req.Value,
			Params: params,
		})
		if err != nil {
			return err
		}
		if !granted.Granted() {
			return fmt.Errorf("%w: %s (%s)", ErrNotApproved, op.Name, granted.Status)
		}
		token = granted.AuthorizationToken
	}

	client, err := d.services.Get(op.Service)
	if err != nil {
		return err
	}

	d.lg.Debug("executing", "op", op.Name, "config", cfg.String(), "approved", token != "")
	return client.Do(ctx, op.Method, op.Path, req.Body, out,
		api.WithAuthorizationToken(token),
		api.WithQuery(req.Query),
	)
}

func (d *Dispatcher) gate(op Operation, cfg chain.Config) error {
	if err := AssertAvailableFor(op.Name, cfg, op.Allow); err != nil {
		d.metrics.RecordGatingReject(op.Name)
		return err
	}
	return nil
}

func asParams(body any) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func get(name string, svc api.Service, path string, allow chain.AllowList) Operation {
	return Operation{Name: name, Service: svc, Method: http.MethodGet, Path: path, Allow: allow}
}

func post(name string, svc api.Service, path string, allow chain.AllowList, action approval.ActionType) Operation {
	return Operation{Name: name, Service: svc, Method: http.MethodPost, Path: path, Allow: allow, Action: action}
}
