package surface

import (
	"context"
	"sync"
)

var _ Launcher = (*MemoryLauncher)(nil)

// MemoryLauncher opens in-process windows. Hosts that render the wallet UI
// themselves drive the windows through Deliver.
type MemoryLauncher struct {
	// OnLaunch, when set, is called with every new window.
	OnLaunch func(w *MemoryWindow)
	// BufferSize is the frame buffer of each window. Zero means 16.
	BufferSize int

	mu          sync.Mutex // protects the fields below
	unavailable bool
	windows     []*MemoryWindow
}

func NewMemoryLauncher() *MemoryLauncher {
	return &MemoryLauncher{}
}

// SetUnavailable makes Launch fail softly until reset.
func (l *MemoryLauncher) SetUnavailable(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unavailable = v
}

func (l *MemoryLauncher) Launch(_ context.Context, req OpenRequest) (Window, error) {
	l.mu.Lock()
	if l.unavailable {
		l.mu.Unlock()
		return nil, ErrSurfaceUnavailable
	}
	size := l.BufferSize
	if size <= 0 {
		size = 16
	}
	w := &MemoryWindow{
		req:  req,
		msgs: make(chan []byte, size),
		done: make(chan struct{}),
	}
	l.windows = append(l.windows, w)
	hook := l.OnLaunch
	l.mu.Unlock()

	if hook != nil {
		hook(w)
	}
	return w, nil
}

// Last returns the most recently launched window, or nil.
func (l *MemoryLauncher) Last() *MemoryWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.windows) == 0 {
		return nil
	}
	return l.windows[len(l.windows)-1]
}

// Launched returns every window launched so far.
func (l *MemoryLauncher) Launched() []*MemoryWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*MemoryWindow(nil), l.windows...)
}

var _ Window = (*MemoryWindow)(nil)

// MemoryWindow is a window opened by a MemoryLauncher.
type MemoryWindow struct {
	req  OpenRequest
	msgs chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	posted [][]byte
}

func (w *MemoryWindow) ID() string              { return w.req.SurfaceID }
func (w *MemoryWindow) Request() OpenRequest    { return w.req }
func (w *MemoryWindow) Messages() <-chan []byte { return w.msgs }
func (w *MemoryWindow) Done() <-chan struct{}   { return w.done }

// Deliver hands a frame from the UI to the SDK.
func (w *MemoryWindow) Deliver(frame []byte) error {
	select {
	case <-w.done:
		return ErrWindowClosed
	default:
	}
	select {
	case <-w.done:
		return ErrWindowClosed
	case w.msgs <- frame:
		return nil
	}
}

func (w *MemoryWindow) Post(ctx context.Context, frame []byte) error {
	select {
	case <-w.done:
		return ErrWindowClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.posted = append(w.posted, frame)
	return nil
}

// Posted returns the frames the SDK sent to the UI.
func (w *MemoryWindow) Posted() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.posted...)
}

func (w *MemoryWindow) Close() error {
	w.once.Do(func() { close(w.done) })
	return nil
}

// Closed reports whether the window is gone.
func (w *MemoryWindow) Closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}
