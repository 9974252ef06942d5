package surface

import "strings"

// Mode selects how the wallet UI is presented.
type Mode string

const (
	Embedded Mode = "embedded"
	Popup    Mode = "popup"
)

func (m Mode) String() string {
	return string(m)
}

// ResolveMode returns requested, or Embedded when empty, unless the user agent
// blocks third-party storage inside iframes. Those agents always get Popup.
func ResolveMode(requested Mode, userAgent string) Mode {
	if blocksEmbedding(userAgent) {
		return Popup
	}
	if requested == "" {
		return Embedded
	}
	return requested
}

func blocksEmbedding(ua string) bool {
	if strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") {
		return true
	}
	return strings.Contains(ua, "Safari/") &&
		!strings.Contains(ua, "Chrome/") &&
		!strings.Contains(ua, "Chromium/")
}

// Default popup size.
const (
	DefaultWidth  = 380
	DefaultHeight = 720
)

// Rect is a screen rectangle in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CenteredGeometry centers a width x height window on screen. Non-positive
// sizes fall back to the defaults, and the window never exceeds the screen.
func CenteredGeometry(screen Rect, width, height int) Rect {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if screen.Width > 0 && width > screen.Width {
		width = screen.Width
	}
	if screen.Height > 0 && height > screen.Height {
		height = screen.Height
	}

	r := Rect{Width: width, Height: height, X: screen.X, Y: screen.Y}
	if screen.Width > 0 {
		r.X += (screen.Width - width) / 2
	}
	if screen.Height > 0 {
		r.Y += (screen.Height - height) / 2
	}
	return r
}
