package console

import (
	"context"
	"errors"
	"io"
)

// ErrClosed is returned by Wait once the input stream has ended.
var ErrClosed = errors.New("console input closed")

// Input is the tracker's view of the console: a non-blocking poll used on
// every tick and a blocking wait used by pause.
type Input interface {
	Poll() (Event, bool)
	Wait(ctx context.Context) (Event, error)
}

// Reader decodes events from an io.Reader on a background goroutine and
// hands them out through Poll and Wait.
type Reader struct {
	events chan Event
}

// NewReader starts reading r. The goroutine exits when r returns an error.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{events: make(chan Event, 64)}
	go rd.readLoop(r)
	return rd
}

func (rd *Reader) readLoop(r io.Reader) {
	defer close(rd.events)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, ev := range Decode(buf[:n]) {
			rd.events <- ev
		}
		if err != nil {
			return
		}
	}
}

// Poll returns the next pending event without waiting.
func (rd *Reader) Poll() (Event, bool) {
	select {
	case ev, ok := <-rd.events:
		return ev, ok
	default:
		return Event{}, false
	}
}

// Wait blocks until an event arrives, the input ends or ctx is done.
func (rd *Reader) Wait(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-rd.events:
		if !ok {
			return Event{}, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}
