package surface

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
)

// WebsocketLauncherConfig contains configuration options for the relay launcher.
type WebsocketLauncherConfig struct {
	// RelayURL is the ws(s) endpoint that bridges the browser's postMessage
	// channel to this process.
	RelayURL string

	// HandshakeTimeout is the duration to wait for the WebSocket handshake to complete
	HandshakeTimeout time.Duration

	// PingInterval is how often to send ping frames to keep the relay alive
	PingInterval time.Duration

	// FrameChanSize is the buffer size of each window's frame channel
	FrameChanSize int

	// Navigate, when set, shows req.URL to the user, e.g. by opening a browser.
	Navigate func(req OpenRequest) error
}

// DefaultWebsocketLauncherConfig provides sensible defaults for relay connections
var DefaultWebsocketLauncherConfig = WebsocketLauncherConfig{
	HandshakeTimeout: 5 * time.Second,
	PingInterval:     5 * time.Second,
	FrameChanSize:    16,
}

var _ Launcher = (*WebsocketLauncher)(nil)

// WebsocketLauncher opens each window as a connection to a relay endpoint.
type WebsocketLauncher struct {
	cfg WebsocketLauncherConfig
}

func NewWebsocketLauncher(cfg WebsocketLauncherConfig) *WebsocketLauncher {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultWebsocketLauncherConfig.HandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultWebsocketLauncherConfig.PingInterval
	}
	if cfg.FrameChanSize <= 0 {
		cfg.FrameChanSize = DefaultWebsocketLauncherConfig.FrameChanSize
	}
	return &WebsocketLauncher{cfg: cfg}
}

// RelayTarget returns the relay URL dialed for req.
func (l *WebsocketLauncher) RelayTarget(req OpenRequest) (string, error) {
	u, err := url.Parse(l.cfg.RelayURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("surface", req.SurfaceID)
	q.Set("mode", req.Mode.String())
	q.Set("target", req.URL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Launch dials the relay and starts three background goroutines:
// - One to close the connection when the window is closed
// - One to read frames from the relay
// - One to send periodic pings
func (l *WebsocketLauncher) Launch(ctx context.Context, req OpenRequest) (Window, error) {
	if l.cfg.RelayURL == "" {
		return nil, ErrSurfaceUnavailable
	}
	target, err := l.RelayTarget(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDialingRelay, err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  l.cfg.HandshakeTimeout,
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDialingRelay, err)
	}

	if l.cfg.Navigate != nil {
		if err := l.cfg.Navigate(req); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
		}
	}

	winCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &wsWindow{
		id:     req.SurfaceID,
		conn:   conn,
		frames: make(chan []byte, l.cfg.FrameChanSize),
		done:   make(chan struct{}),
		cancel: cancel,
		lg:     log.FromContext(ctx).WithName("ws-surface").WithKV("surface", req.SurfaceID),
	}

	wg := sync.WaitGroup{}
	wg.Add(3)
	handleClosure := func(err error) {
		w.errMu.Lock()
		// Capture the first error encountered
		if err != nil && w.err == nil {
			w.err = err
		}
		w.errMu.Unlock()

		cancel()
		wg.Done()
	}

	go w.closeOnContextDone(winCtx, handleClosure)
	go w.readFrames(winCtx, handleClosure)
	go w.pingPeriodically(winCtx, l.cfg.PingInterval, handleClosure)

	go func() {
		wg.Wait()
		close(w.done)
	}()
	return w, nil
}

type wsWindow struct {
	id      string
	conn    *websocket.Conn
	frames  chan []byte
	done    chan struct{}
	cancel  context.CancelFunc
	lg      log.Logger
	writeMu sync.Mutex // serializes websocket writes

	errMu sync.Mutex
	err   error
}

func (w *wsWindow) ID() string              { return w.id }
func (w *wsWindow) Messages() <-chan []byte { return w.frames }
func (w *wsWindow) Done() <-chan struct{}   { return w.done }

// Err returns the first error that ended the connection, if any.
func (w *wsWindow) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *wsWindow) Post(ctx context.Context, frame []byte) error {
	select {
	case <-w.done:
		return ErrWindowClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	return w.conn.WriteMessage(websocket.TextMessage, frame)
}

func (w *wsWindow) Close() error {
	w.cancel()
	return nil
}

func (w *wsWindow) closeOnContextDone(ctx context.Context, handleClosure func(err error)) {
	<-ctx.Done()

	w.writeMu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()

	handleClosure(w.conn.Close())
}

func (w *wsWindow) readFrames(ctx context.Context, handleClosure func(err error)) {
	for {
		_, frame, err := w.conn.ReadMessage()
		if ctx.Err() != nil {
			handleClosure(nil)
			w.lg.Debug("relay read loop exiting due to context done")
			return
		} else if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			handleClosure(nil)
			w.lg.Info("relay closed the window")
			return
		} else if _, ok := err.(net.Error); ok {
			handleClosure(fmt.Errorf("%w: %w", ErrRelayTimeout, err))
			w.lg.Error("relay connection timeout", "error", err)
			return
		} else if err != nil {
			handleClosure(fmt.Errorf("%w: %w", ErrReadingFrame, err))
			w.lg.Error("relay read error", "error", err)
			return
		}

		select {
		case <-ctx.Done():
			handleClosure(nil)
			return
		case w.frames <- frame:
		default:
			w.lg.Warn("frame channel full, dropping frame")
		}
	}
}

func (w *wsWindow) pingPeriodically(ctx context.Context, interval time.Duration, handleClosure func(err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			handleClosure(nil)
			return
		case <-ticker.C:
			w.writeMu.Lock()
			err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval))
			w.writeMu.Unlock()
			if err != nil {
				handleClosure(fmt.Errorf("%w: %w", ErrSendingPing, err))
				w.lg.Error("error sending ping", "error", err)
				return
			}
		}
	}
}
