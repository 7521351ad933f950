package console

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Terminal owns the controlling terminal for the lifetime of the tracker.
// When stdin is a terminal it is switched to raw mode so single key presses
// are delivered without Enter; output then needs explicit carriage returns.
type Terminal struct {
	in    *os.File
	out   io.Writer
	state *term.State
	input *Reader
	once  sync.Once
}

// Open prepares in for single-key input. When in is not a terminal (piped
// input) raw mode is skipped and bytes are decoded as they arrive.
func Open(in *os.File, out io.Writer) (*Terminal, error) {
	t := &Terminal{in: in, out: out}
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("failed to enable raw terminal mode: %w", err)
		}
		t.state = state
		t.out = NewCRLFWriter(out)
	}
	t.input = NewReader(in)
	return t, nil
}

// Raw reports whether the terminal was switched to raw mode.
func (t *Terminal) Raw() bool { return t.state != nil }

// Input returns the event source for the tracker.
func (t *Terminal) Input() Input { return t.input }

// Writer returns the writer all console output must go through.
func (t *Terminal) Writer() io.Writer { return t.out }

// Restore puts the terminal back into its original mode. Safe to call twice.
func (t *Terminal) Restore() error {
	var err error
	t.once.Do(func() {
		if t.state != nil {
			err = term.Restore(int(t.in.Fd()), t.state)
		}
	})
	return err
}

// CRLFWriter rewrites "\n" as "\r\n" for terminals in raw mode.
type CRLFWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewCRLFWriter wraps w.
func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

func (c *CRLFWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
