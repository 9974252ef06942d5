// Package approval obtains user approval for sensitive actions.
//
// Each request registers a pending action with the backend, shows the wallet
// surface for it and waits for a decision frame carrying the same uuid.
// Frames for other uuids never resolve a request.
package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/metrics"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/validation"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/wire"
)

// DefaultApprovePath prefixes the uuid in the wallet UI path of an approval.
const DefaultApprovePath = "/approve/"

// ActionAPI registers actions. *api.ActionService implements it.
type ActionAPI interface {
	RequestAction(ctx context.Context, req api.ActionRequest) (api.Action, error)
}

// Surface opens the wallet UI. *surface.Surface implements it.
type Surface interface {
	Open(ctx context.Context, path string, autoClose bool) (surface.Window, error)
	Finish(win surface.Window)
}

// Credentials reports the credential mode. *credential.Store implements it.
type Credentials interface {
	HasSecretKey() bool
}

type Config struct {
	ApprovePath string
	Metrics     *metrics.Metrics
	Logger      log.Logger
	// Now is used to stamp actions the backend returned without a creation time.
	Now func() time.Time
}

type decision struct {
	approved bool
	token    string
	ref      wire.ActionRef
}

type pending struct {
	action PendingAction
	sink   chan decision
}

// Broker is safe for concurrent use; concurrent requests wait independently.
type Broker struct {
	cfg      Config
	creds    Credentials
	api      ActionAPI
	surface  Surface
	validate *validator.Validate
	lg       log.Logger
	sub      event.Subscription

	mu    sync.Mutex // protects sinks and live
	sinks map[string]*pending
	// live is the uuid whose surface was requested last.
	live string
}

// NewBroker creates a broker listening for decision frames on bus.
func NewBroker(bus *event.Bus, creds Credentials, actions ActionAPI, surf Surface, cfg Config) *Broker {
	if cfg.ApprovePath == "" {
		cfg.ApprovePath = DefaultApprovePath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	b := &Broker{
		cfg:      cfg,
		creds:    creds,
		api:      actions,
		surface:  surf,
		validate: NewValidator(),
		lg:       log.OrNoop(cfg.Logger).WithName("approval"),
		sinks:    make(map[string]*pending),
	}
	b.sub = bus.SubscribeUI(b.route)
	return b
}

// NewValidator returns the shared validator with the action_type tag added.
func NewValidator() *validator.Validate {
	v := validation.New()
	if err := v.RegisterValidation("action_type", func(fl validator.FieldLevel) bool {
		return ActionType(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("failed to register action_type validation: %v", err))
	}
	return v
}

// Close detaches the broker from the bus. Outstanding requests keep waiting
// for their context.
func (b *Broker) Close() {
	b.sub.Unsubscribe()
}

// RequestApproval asks the user to approve req.
//
// A nil error comes with one of the Approved, Bypassed, Cancelled or
// Unavailable statuses; Cancelled also comes with an ErrCancelled error. A
// user rejection is a *DenialError, an invalid request a *ValidationError.
func (b *Broker) RequestApproval(ctx context.Context, req ActionRequest) (Approval, error) {
	lg := log.FromContextOr(ctx, b.lg)

	if b.creds.HasSecretKey() {
		b.cfg.Metrics.RecordApproval(metrics.OutcomeBypassed)
		lg.Debug("secret key installed, approval bypassed", "type", req.Type)
		return Approval{Status: Bypassed}, nil
	}

	if err := b.validate.Struct(req); err != nil {
		return Approval{}, &ValidationError{Fields: validation.Fields(err), err: err}
	}

	created, err := b.api.RequestAction(ctx, api.ActionRequest{
		Type:   req.Type.String(),
		Value:  req.Value,
		Params: req.Params,
	})
	if err != nil {
		return Approval{}, fmt.Errorf("%w: %w", ErrRequestAction, err)
	}
	action := newPendingAction(created, b.cfg.Now())
	lg = lg.WithKV("action", action.UUID)

	// Registered before the surface opens so an early decision is not lost.
	p := &pending{action: action, sink: make(chan decision, 1)}
	b.mu.Lock()
	b.sinks[action.UUID] = p
	b.live = action.UUID
	b.mu.Unlock()
	defer b.release(action.UUID)

	win, err := b.surface.Open(ctx, b.cfg.ApprovePath+action.UUID, true)
	if err != nil {
		b.cfg.Metrics.RecordApproval(metrics.OutcomeFailure)
		return Approval{}, fmt.Errorf("%w: %w", ErrSurface, err)
	}
	if win == nil {
		b.cfg.Metrics.RecordApproval(metrics.OutcomeUnavailable)
		return Approval{Status: Unavailable, Action: action}, nil
	}
	lg.Debug("waiting for decision", "type", action.Type)

	select {
	case d := <-p.sink:
		b.surface.Finish(win)
		if !d.approved {
			b.cfg.Metrics.RecordApproval(metrics.OutcomeDenied)
			lg.Info("action denied")
			return Approval{}, &DenialError{UUID: action.UUID}
		}
		if d.ref.Status != "" {
			action.Status = d.ref.Status
		}
		b.cfg.Metrics.RecordApproval(metrics.OutcomeApproved)
		lg.Info("action approved")
		return Approval{Status: Approved, Action: action, AuthorizationToken: d.token}, nil
	case <-ctx.Done():
		b.surface.Finish(win)
		b.cfg.Metrics.RecordApproval(metrics.OutcomeCancelled)
		return Approval{Status: Cancelled, Action: action}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// Pending lists the actions still waiting for a decision, oldest first.
func (b *Broker) Pending() []PendingAction {
	b.mu.Lock()
	out := make([]PendingAction, 0, len(b.sinks))
	for _, p := range b.sinks {
		out = append(out, p.action)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UUID < out[j].UUID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (b *Broker) release(uuid string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, uuid)
	if b.live == uuid {
		b.live = ""
	}
}

// route hands decision frames to the request waiting on their uuid. A cancel
// frame without a uuid applies to the request whose surface is live.
func (b *Broker) route(_ context.Context, ev event.UIEvent) {
	if ev.Kind != event.UIMessage {
		return
	}

	var d decision
	switch ev.Message.Name {
	case wire.NameActionApprove:
		p, ok := ev.Message.Approve()
		if !ok {
			return
		}
		d = decision{approved: true, token: p.AuthorizationToken, ref: p.Action}
	case wire.NameActionCancel:
		if p, ok := ev.Message.Cancel(); ok {
			d.ref = p.Action
		}
	default:
		return
	}

	b.mu.Lock()
	uuid := d.ref.UUID
	if uuid == "" && !d.approved {
		uuid = b.live
	}
	p, ok := b.sinks[uuid]
	b.mu.Unlock()

	if !ok {
		b.lg.Debug("ignoring decision for unknown action", "action", uuid, "name", ev.Message.Name)
		return
	}
	select {
	case p.sink <- d:
	default:
		b.lg.Warn("decision already pending, dropping", "action", uuid)
	}
}
