package tracker

import "sync/atomic"

// State holds the two runtime toggles. Both are read on every tick and may be
// read concurrently by the status endpoint.
type State struct {
	streaming atomic.Bool
	display   atomic.Bool
}

// NewState returns a State with the given initial values.
func NewState(streaming, display bool) *State {
	s := &State{}
	s.streaming.Store(streaming)
	s.display.Store(display)
	return s
}

func (s *State) Streaming() bool { return s.streaming.Load() }

func (s *State) Display() bool { return s.display.Load() }

// ToggleStreaming flips the streaming flag and returns the new value.
func (s *State) ToggleStreaming() bool {
	return toggle(&s.streaming)
}

// ToggleDisplay flips the display flag and returns the new value.
func (s *State) ToggleDisplay() bool {
	return toggle(&s.display)
}

func toggle(b *atomic.Bool) bool {
	for {
		old := b.Load()
		if b.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
