// Package event provides the per-instance publish/subscribe bus that connects
// the session, the approval broker and the wallet surface.
//
// Delivery is synchronous: Emit returns after every handler has run, in the
// order the handlers subscribed.
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/wire"
)

// Event is a session lifecycle event.
type Event string

const (
	Ready        Event = "ready"
	Login        Event = "login"
	Logout       Event = "logout"
	RefreshToken Event = "auth:refreshToken"
	UpdateUser   Event = "update:user"
)

func (e Event) String() string {
	return string(e)
}

// Events lists every lifecycle event.
func Events() []Event {
	return []Event{Ready, Login, Logout, RefreshToken, UpdateUser}
}

// UIKind discriminates events on the UI channel.
type UIKind string

const (
	// UIMessage carries a decoded frame relayed from a surface.
	UIMessage UIKind = "message"
	// UIClose asks the live surface to tear down.
	UIClose UIKind = "close"
)

// UIEvent travels on the UI channel.
type UIEvent struct {
	Kind    UIKind
	Message wire.Message
}

// Handler receives lifecycle events.
type Handler func(ctx context.Context, ev Event, payload any)

// UIHandler receives UI channel events.
type UIHandler func(ctx context.Context, ev UIEvent)

// Subscription detaches a handler. Unsubscribe is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

type lifecycleSub struct {
	id uint64
	fn Handler
}

type uiSub struct {
	id uint64
	fn UIHandler
}

// Bus is safe for concurrent use. Each SDK instance owns exactly one.
type Bus struct {
	lg log.Logger

	mu        sync.RWMutex // protects nextID, lifecycle and ui
	nextID    uint64
	lifecycle map[Event][]lifecycleSub
	ui        []uiSub
}

func NewBus(lg log.Logger) *Bus {
	return &Bus{
		lg:        log.OrNoop(lg).WithName("bus"),
		lifecycle: make(map[Event][]lifecycleSub),
	}
}

// Subscribe registers fn for ev.
func (b *Bus) Subscribe(ev Event, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.lifecycle[ev] = append(b.lifecycle[ev], lifecycleSub{id: id, fn: fn})

	return unsubscribeFunc(sync.OnceFunc(func() { b.removeLifecycle(ev, id) }))
}

// SubscribeUI registers fn for every UI channel event.
func (b *Bus) SubscribeUI(fn UIHandler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.ui = append(b.ui, uiSub{id: id, fn: fn})

	return unsubscribeFunc(sync.OnceFunc(func() { b.removeUI(id) }))
}

// Emit delivers payload to the handlers of ev. Handlers subscribed during
// delivery receive the next emission, not this one.
func (b *Bus) Emit(ctx context.Context, ev Event, payload any) {
	b.mu.RLock()
	subs := append([]lifecycleSub(nil), b.lifecycle[ev]...)
	b.mu.RUnlock()

	b.lg.Debug("emit", "event", ev, "handlers", len(subs))
	for _, s := range subs {
		b.safeCall(ev.String(), func() { s.fn(ctx, ev, payload) })
	}
}

// EmitUI delivers ev to every UI handler.
func (b *Bus) EmitUI(ctx context.Context, ev UIEvent) {
	b.mu.RLock()
	subs := append([]uiSub(nil), b.ui...)
	b.mu.RUnlock()

	b.lg.Debug("emit ui", "kind", ev.Kind, "name", ev.Message.Name, "handlers", len(subs))
	for _, s := range subs {
		b.safeCall(string(ev.Kind), func() { s.fn(ctx, ev) })
	}
}

// HandlerCount reports the number of handlers registered for ev.
func (b *Bus) HandlerCount(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lifecycle[ev])
}

// UIHandlerCount reports the number of UI handlers.
func (b *Bus) UIHandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ui)
}

// safeCall keeps one failing handler from starving the rest.
func (b *Bus) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.lg.Error("event handler panicked", "event", name, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

func (b *Bus) removeLifecycle(ev Event, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.lifecycle[ev]
	for i, s := range subs {
		if s.id == id {
			b.lifecycle[ev] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) removeUI(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.ui {
		if s.id == id {
			b.ui = append(b.ui[:i:i], b.ui[i+1:]...)
			return
		}
	}
}

type unsubscribeFunc func()

func (f unsubscribeFunc) Unsubscribe() { f() }
