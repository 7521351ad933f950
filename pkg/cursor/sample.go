package cursor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAcquisition wraps every failure to read the cursor position.
	ErrAcquisition = errors.New("cursor acquisition failed")
	// ErrNoDisplay is returned when there is no active display session to query.
	ErrNoDisplay = errors.New("no active display session")
)

// Point is a global cursor position in screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Sample is one cursor reading taken by the sampling loop.
type Sample struct {
	Elapsed time.Duration `json:"elapsed"`
	X       int           `json:"x"`
	Y       int           `json:"y"`
}

// Channels returns the two-channel (x, y) payload pushed to the outbound stream.
func (s Sample) Channels() []int32 {
	return []int32{int32(s.X), int32(s.Y)}
}

// Source is anything that can report the current cursor position.
type Source interface {
	Position() (Point, error)
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func() (Point, error)

// Position calls the underlying function.
func (f SourceFunc) Position() (Point, error) {
	return f()
}

// Sampler pairs a Source with a clock started at the beginning of the loop.
type Sampler struct {
	source Source
	clock  func() time.Time
	start  time.Time
}

// NewSampler returns a sampler reading from source. A nil clock uses time.Now.
// The elapsed-time reference is taken immediately; call Start to reset it.
func NewSampler(source Source, clock func() time.Time) *Sampler {
	if clock == nil {
		clock = time.Now
	}
	return &Sampler{source: source, clock: clock, start: clock()}
}

// Start resets the elapsed-time reference to now.
func (s *Sampler) Start() {
	s.start = s.clock()
}

// Acquire reads the cursor position and the elapsed time since Start.
func (s *Sampler) Acquire() (Sample, error) {
	p, err := s.source.Position()
	if err != nil {
		if errors.Is(err, ErrAcquisition) {
			return Sample{}, err
		}
		return Sample{}, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	return Sample{
		Elapsed: s.clock().Sub(s.start),
		X:       p.X,
		Y:       p.Y,
	}, nil
}
