// Package surface opens the wallet UI and relays its frames onto the event bus.
//
// At most one window is live per Surface. Opening a new one closes the
// previous window first.
package surface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/metrics"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/wire"
)

// Config configures a Surface.
type Config struct {
	// BaseURL is the wallet UI origin; Open appends the flow path to it.
	BaseURL   string
	Mode      Mode
	UserAgent string
	// Screen is used to center popups. Zero means unknown.
	Screen   Rect
	Width    int
	Height   int
	Launcher Launcher
	Metrics  *metrics.Metrics
	Logger   log.Logger
}

// Surface owns the live wallet window.
type Surface struct {
	cfg  Config
	mode Mode
	bus  *event.Bus
	lg   log.Logger
	sub  event.Subscription

	mu   sync.Mutex // protects live
	live *handle
}

type handle struct {
	win       Window
	autoClose bool
	once      sync.Once
}

// New creates a Surface that publishes to bus. A UIClose event on bus closes
// the live window.
func New(bus *event.Bus, cfg Config) *Surface {
	s := &Surface{
		cfg:  cfg,
		mode: ResolveMode(cfg.Mode, cfg.UserAgent),
		bus:  bus,
		lg:   log.OrNoop(cfg.Logger).WithName("surface"),
	}
	s.sub = bus.SubscribeUI(func(_ context.Context, ev event.UIEvent) {
		if ev.Kind == event.UIClose {
			s.Close()
		}
	})
	return s
}

// Mode returns the resolved presentation mode.
func (s *Surface) Mode() Mode {
	return s.mode
}

// Open shows the wallet UI at path. It returns a nil window and nil error when
// no window can be shown; callers must check for that.
func (s *Surface) Open(ctx context.Context, path string, autoClose bool) (Window, error) {
	s.Close()

	lg := log.FromContextOr(ctx, s.lg)
	if s.cfg.Launcher == nil {
		lg.Warn("no launcher configured, surface unavailable", "path", path)
		return nil, nil
	}

	req := OpenRequest{
		SurfaceID: uuid.NewString(),
		Mode:      s.mode,
		URL:       strings.TrimRight(s.cfg.BaseURL, "/") + path,
		Geometry:  CenteredGeometry(s.cfg.Screen, s.cfg.Width, s.cfg.Height),
	}
	win, err := s.cfg.Launcher.Launch(ctx, req)
	switch {
	case errors.Is(err, ErrSurfaceUnavailable), err == nil && win == nil:
		lg.Warn("surface unavailable", "path", path, "mode", s.mode)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	h := &handle{win: win, autoClose: autoClose}
	s.mu.Lock()
	prev := s.live
	s.live = h
	s.mu.Unlock()
	// A concurrent Open may have slipped in between Close and here.
	if prev != nil {
		s.closeHandle(prev)
	}

	s.cfg.Metrics.SetSurfaceOpen(s.mode.String(), true)
	lg.Debug("surface opened", "surface", win.ID(), "url", req.URL, "mode", s.mode)

	go s.relay(context.WithoutCancel(ctx), h)
	return win, nil
}

// Live returns the live window, or nil.
func (s *Surface) Live() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return nil
	}
	return s.live.win
}

// Close closes the live window, if any.
func (s *Surface) Close() {
	s.mu.Lock()
	h := s.live
	s.mu.Unlock()
	if h != nil {
		s.closeHandle(h)
	}
}

// Finish is called by a flow that resolved on win. It closes win when it was
// opened with autoClose.
func (s *Surface) Finish(win Window) {
	if win == nil {
		return
	}
	s.mu.Lock()
	h := s.live
	s.mu.Unlock()
	if h != nil && h.win == win && h.autoClose {
		s.closeHandle(h)
	}
}

// Shutdown detaches the surface from the bus and closes the live window.
func (s *Surface) Shutdown() {
	s.sub.Unsubscribe()
	s.Close()
}

func (s *Surface) closeHandle(h *handle) {
	s.mu.Lock()
	if s.live == h {
		s.live = nil
	}
	s.mu.Unlock()

	h.once.Do(func() {
		if err := h.win.Close(); err != nil {
			s.lg.Warn("error closing window", "surface", h.win.ID(), "error", err)
		}
		s.cfg.Metrics.SetSurfaceOpen(s.mode.String(), false)
	})
}

// relay decodes frames from h until the window is gone.
func (s *Surface) relay(ctx context.Context, h *handle) {
	defer s.closeHandle(h)

	id := h.win.ID()
	for {
		select {
		case <-h.win.Done():
			return
		case raw := <-h.win.Messages():
			msg, err := wire.Decode(raw)
			if err != nil {
				s.lg.Warn("dropping frame", "surface", id, "error", err)
				continue
			}
			if s.mode == Embedded && msg.SurfaceID != id {
				s.lg.Warn("dropping frame from foreign surface", "surface", id, "source", msg.SurfaceID)
				continue
			}

			s.lg.Debug("relaying frame", "surface", id, "name", msg.Name)
			s.bus.EmitUI(ctx, event.UIEvent{Kind: event.UIMessage, Message: msg})
			if msg.Name == wire.NameAuthClose {
				return
			}
		}
	}
}
