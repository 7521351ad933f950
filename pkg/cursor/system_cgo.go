//go:build cgo

package cursor

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// systemSource reads the OS cursor through robotgo.
// On Linux this needs an X11 session; Wayland does not expose the global pointer.
type systemSource struct{}

// NewSystemSource verifies that a display is reachable and returns a Source
// backed by the operating system cursor.
func NewSystemSource() (Source, error) {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: screen size reported as %dx%d", ErrNoDisplay, w, h)
	}
	return systemSource{}, nil
}

func (systemSource) Position() (Point, error) {
	x, y := robotgo.Location()
	return Point{X: x, Y: y}, nil
}
