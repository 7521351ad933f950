package cursor

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	clock func() time.Time
}

// NewMockSource creates a cursor source that traces a smooth Lissajous path
// over a 1920x1080 screen. A nil clock uses time.Now.
func NewMockSource(clock func() time.Time) Source {
	if clock == nil {
		clock = time.Now
	}
	return &mockSource{start: clock(), clock: clock}
}

func (m *mockSource) Position() (Point, error) {
	elapsed := m.clock().Sub(m.start).Seconds()

	return Point{
		X: 960 + int(math.Round(800*math.Sin(elapsed))),
		Y: 540 + int(math.Round(400*math.Sin(2*elapsed))),
	}, nil
}
