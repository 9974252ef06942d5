package surface

import "errors"

var (
	// ErrSurfaceUnavailable is returned by a Launcher that cannot show a
	// window. Open turns it into a nil window instead of an error.
	ErrSurfaceUnavailable = errors.New("wallet surface unavailable")
	ErrLaunchFailed       = errors.New("failed to launch wallet surface")
	ErrWindowClosed       = errors.New("window closed")
	ErrDialingRelay       = errors.New("error dialing relay")
	ErrReadingFrame       = errors.New("error reading frame")
	ErrRelayTimeout       = errors.New("relay connection timeout")
	ErrSendingPing        = errors.New("error sending ping")
)
