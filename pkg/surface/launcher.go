package surface

import "context"

// OpenRequest describes the window a Launcher must show.
type OpenRequest struct {
	SurfaceID string
	Mode      Mode
	URL       string
	Geometry  Rect
}

// Launcher shows wallet UI windows.
type Launcher interface {
	// Launch opens a window for req. It returns ErrSurfaceUnavailable when the
	// host cannot show one right now.
	Launch(ctx context.Context, req OpenRequest) (Window, error)
}

// Window is one open wallet UI.
type Window interface {
	ID() string
	// Messages yields raw frames sent by the UI. It is never closed; watch Done.
	Messages() <-chan []byte
	// Post sends a raw frame to the UI.
	Post(ctx context.Context, frame []byte) error
	// Close tears the window down. It is safe to call more than once.
	Close() error
	// Done is closed once the window is gone.
	Done() <-chan struct{}
}
