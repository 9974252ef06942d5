package approval_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/metrics"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/wire"
)

type fakeActions struct {
	mu    sync.Mutex
	calls []api.ActionRequest
	err   error
}

func (f *fakeActions) RequestAction(_ context.Context, req api.ActionRequest) (api.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return api.Action{}, f.err
	}
	f.calls = append(f.calls, req)
	return api.Action{
		UUID:   fmt.Sprintf("uuid-%d", len(f.calls)),
		Type:   req.Type,
		Value:  req.Value,
		Status: "pending",
	}, nil
}

func (f *fakeActions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCreds struct{ secret bool }

func (f fakeCreds) HasSecretKey() bool { return f.secret }

type harness struct {
	bus      *event.Bus
	actions  *fakeActions
	launcher *surface.MemoryLauncher
	broker   *approval.Broker
}

func newHarness(t *testing.T, secret bool) *harness {
	t.Helper()
	h := &harness{
		bus:      event.NewBus(nil),
		actions:  &fakeActions{},
		launcher: surface.NewMemoryLauncher(),
	}
	surf := surface.New(h.bus, surface.Config{BaseURL: "https://auth.example.com", Launcher: h.launcher})
	t.Cleanup(surf.Shutdown)

	h.broker = approval.NewBroker(h.bus, fakeCreds{secret: secret}, h.actions, surf, approval.Config{})
	t.Cleanup(h.broker.Close)
	return h
}

// decide publishes a decision frame as if the wallet UI had sent it.
func (h *harness) decide(name wire.Name, uuid string) {
	msg := wire.Message{Version: wire.ProtocolVersion, Name: name}
	switch name {
	case wire.NameActionApprove:
		msg.Payload = &wire.ApprovePayload{
			Action:             wire.ActionRef{UUID: uuid, Status: "verified"},
			AuthorizationToken: "token-" + uuid,
		}
	case wire.NameActionCancel:
		if uuid != "" {
			msg.Payload = &wire.CancelPayload{Action: wire.ActionRef{UUID: uuid}}
		}
	}
	h.bus.EmitUI(context.Background(), event.UIEvent{Kind: event.UIMessage, Message: msg})
}

func (h *harness) waitPending(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.broker.Pending()) == n }, time.Second, 5*time.Millisecond)
}

type outcome struct {
	approval approval.Approval
	err      error
}

func (h *harness) request(ctx context.Context, req approval.ActionRequest) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		a, err := h.broker.RequestApproval(ctx, req)
		ch <- outcome{a, err}
	}()
	return ch
}

func mint() approval.ActionRequest {
	return approval.ActionRequest{
		Type:   approval.MintNFT,
		Value:  decimal.RequireFromString("0.1"),
		Params: map[string]any{"name": "nft"},
	}
}

func TestBroker_Approve(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.launcher.OnLaunch = func(w *surface.MemoryWindow) {
		go func() {
			_ = w.Deliver(wire.MustEncode(wire.NameActionApprove, w.ID(), wire.ApprovePayload{
				Action:             wire.ActionRef{UUID: "uuid-1"},
				AuthorizationToken: "grant",
			}))
		}()
	}

	got, err := h.broker.RequestApproval(context.Background(), mint())
	require.NoError(t, err)
	assert.Equal(t, approval.Approved, got.Status)
	assert.True(t, got.Granted())
	assert.Equal(t, "grant", got.AuthorizationToken)
	assert.Equal(t, "uuid-1", got.Action.UUID)
	assert.Equal(t, approval.MintNFT, got.Action.Type)
	assert.False(t, got.Action.CreatedAt.IsZero())

	w := h.launcher.Last()
	assert.Equal(t, "https://auth.example.com/approve/uuid-1", w.Request().URL)
	require.Eventually(t, w.Closed, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.broker.Pending())
}

func TestBroker_UUIDIsolation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	ctx := context.Background()

	first := h.request(ctx, mint())
	h.waitPending(t, 1)
	second := h.request(ctx, mint())
	h.waitPending(t, 2)

	h.decide(wire.NameActionApprove, "uuid-2")
	select {
	case o := <-second:
		require.NoError(t, o.err)
		assert.Equal(t, "token-uuid-2", o.approval.AuthorizationToken)
		assert.Equal(t, "verified", o.approval.Action.Status)
	case <-time.After(time.Second):
		t.Fatal("second approval not resolved")
	}

	select {
	case o := <-first:
		t.Fatalf("first approval resolved by a foreign uuid: %+v", o)
	case <-time.After(50 * time.Millisecond):
	}
	pending := h.broker.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "uuid-1", pending[0].UUID)

	h.decide(wire.NameActionApprove, "uuid-404")
	h.decide(wire.NameActionCancel, "uuid-1")
	o := <-first
	var denial *approval.DenialError
	require.ErrorAs(t, o.err, &denial)
	assert.Equal(t, "uuid-1", denial.UUID)
	assert.Contains(t, o.err.Error(), "uuid-1")
	assert.ErrorIs(t, o.err, approval.ErrDenied)
}

func TestBroker_DenialFromWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.launcher.OnLaunch = func(w *surface.MemoryWindow) {
		go func() {
			_ = w.Deliver(wire.MustEncode(wire.NameActionCancel, w.ID(), nil))
		}()
	}

	_, err := h.broker.RequestApproval(context.Background(), mint())
	var denial *approval.DenialError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, "uuid-1", denial.UUID)
	require.Eventually(t, h.launcher.Last().Closed, time.Second, 5*time.Millisecond)
}

func TestBroker_SecretKeyBypass(t *testing.T) {
	t.Parallel()

	h := newHarness(t, true)
	got, err := h.broker.RequestApproval(context.Background(), approval.ActionRequest{Type: "not-even-valid"})
	require.NoError(t, err)
	assert.Equal(t, approval.Bypassed, got.Status)
	assert.True(t, got.Granted())
	assert.Empty(t, got.AuthorizationToken)
	assert.Zero(t, h.actions.count())
	assert.Nil(t, h.launcher.Last())
}

func TestBroker_Validation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	tcs := []approval.ActionRequest{
		{Type: "mint_everything"},
		{},
		{Type: approval.TransferSOL, Value: decimal.NewFromInt(-1)},
	}
	for _, req := range tcs {
		_, err := h.broker.RequestApproval(context.Background(), req)
		var verr *approval.ValidationError
		require.ErrorAs(t, err, &verr, "request %+v", req)
		assert.ErrorIs(t, err, approval.ErrInvalidAction)
		assert.NotEmpty(t, verr.Fields)
	}
	assert.Zero(t, h.actions.count())
	assert.Nil(t, h.launcher.Last())
}

func TestBroker_ContextCancelled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	res := h.request(ctx, mint())
	h.waitPending(t, 1)
	cancel()

	o := <-res
	assert.Equal(t, approval.Cancelled, o.approval.Status)
	assert.ErrorIs(t, o.err, approval.ErrCancelled)
	assert.ErrorIs(t, o.err, context.Canceled)
	assert.Empty(t, h.broker.Pending())
	assert.True(t, h.launcher.Last().Closed())
}

func TestBroker_CancelWithoutUUIDTargetsLiveSurface(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	res := h.request(context.Background(), mint())
	h.waitPending(t, 1)
	require.Eventually(t, func() bool { return h.launcher.Last() != nil }, time.Second, 5*time.Millisecond)

	h.decide(wire.NameActionCancel, "")
	o := <-res
	assert.ErrorIs(t, o.err, approval.ErrDenied)
}

func TestBroker_Unavailable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.launcher.SetUnavailable(true)

	got, err := h.broker.RequestApproval(context.Background(), mint())
	require.NoError(t, err)
	assert.Equal(t, approval.Unavailable, got.Status)
	assert.False(t, got.Granted())
	assert.Empty(t, h.broker.Pending())
}

type brokenLauncher struct{ err error }

func (l brokenLauncher) Launch(context.Context, surface.OpenRequest) (surface.Window, error) {
	return nil, l.err
}

func TestBroker_SurfaceFails(t *testing.T) {
	t.Parallel()

	bus := event.NewBus(nil)
	boom := errors.New("relay refused")
	surf := surface.New(bus, surface.Config{BaseURL: "https://auth.example.com", Launcher: brokenLauncher{err: boom}})
	t.Cleanup(surf.Shutdown)
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	broker := approval.NewBroker(bus, fakeCreds{}, &fakeActions{}, surf, approval.Config{Metrics: m})
	t.Cleanup(broker.Close)

	_, err := broker.RequestApproval(context.Background(), mint())
	require.ErrorIs(t, err, approval.ErrSurface)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Approvals.WithLabelValues(metrics.OutcomeFailure)))
	assert.Empty(t, broker.Pending())
}

func TestBroker_RequestActionFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	remote := &api.RemoteError{Service: api.Auth, Path: "/actions/request", HTTPStatus: 500}
	h.actions.err = remote

	_, err := h.broker.RequestApproval(context.Background(), mint())
	assert.ErrorIs(t, err, approval.ErrRequestAction)
	assert.True(t, errors.As(err, &remote))
	assert.Nil(t, h.launcher.Last())
}

func TestActionTypes(t *testing.T) {
	t.Parallel()

	for _, at := range approval.ActionTypes() {
		assert.True(t, at.Valid(), at)
	}
	assert.False(t, approval.ActionType("mint").Valid())
	assert.Contains(t, approval.ActionTypes(), approval.TransferSUIToken)
}
