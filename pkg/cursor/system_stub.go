//go:build !cgo

package cursor

import "fmt"

// NewSystemSource is unavailable without cgo; robotgo links against the
// platform windowing libraries.
func NewSystemSource() (Source, error) {
	return nil, fmt.Errorf("%w: system cursor requires a cgo build", ErrNoDisplay)
}
