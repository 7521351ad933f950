package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/scottastone/MouseTracker/pkg/console"
	"github.com/scottastone/MouseTracker/pkg/cursor"
	"github.com/scottastone/MouseTracker/pkg/log"
)

// ErrInvalidRate is returned by NewLoop for a non-positive sample rate.
var ErrInvalidRate = errors.New("sample rate must be a positive integer")

// Publisher receives one two-channel sample per tick while streaming is on.
type Publisher interface {
	PushSample(values []int32) error
}

// Recorder observes loop activity. metrics.Collector implements it.
type Recorder interface {
	TickObserved(d time.Duration)
	SamplePublished()
	AcquisitionSkipped()
	CommandDispatched(action string)
	SetStreaming(on bool)
	SetDisplay(on bool)
}

type nopRecorder struct{}

func (nopRecorder) TickObserved(time.Duration) {}
func (nopRecorder) SamplePublished() {}
func (nopRecorder) AcquisitionSkipped() {}
func (nopRecorder) CommandDispatched(string) {}
func (nopRecorder) SetStreaming(bool) {}
func (nopRecorder) SetDisplay(bool) {}

// Options configures a Loop. Source, Input and Hertz are required.
type Options struct {
	Hertz     int
	Source    cursor.Source
	Publisher Publisher        // publishing is skipped when nil
	Input     console.Input
	Output    io.Writer        // telemetry and command messages, io.Discard when nil
	State     *State           // streaming and display on when nil
	Pacer     Pacer            // SleepPacer over Interval(Hertz) when nil
	Clock     func() time.Time // time.Now when nil

	// SkipAcquireErrors logs and skips a tick whose cursor read fails instead
	// of stopping the loop.
	SkipAcquireErrors bool

	Metrics Recorder
	Logger  log.Logger
}

// Status is a point-in-time view of the loop for the status endpoint.
type Status struct {
	Hertz      int            `json:"hertz"`
	Interval   string         `json:"interval"`
	Streaming  bool           `json:"streaming"`
	Display    bool           `json:"display"`
	Ticks      uint64         `json:"ticks"`
	Published  uint64         `json:"published"`
	Skipped    uint64         `json:"skipped"`
	Paused     bool           `json:"paused"`
	LastSample *cursor.Sample `json:"last_sample,omitempty"`
}

// Loop is the sampling loop: drain input, acquire, publish, render, pace.
type Loop struct {
	hertz     int
	interval  time.Duration
	sampler   *cursor.Sampler
	publisher Publisher
	input     console.Input
	out       io.Writer
	state     *State
	pacer     Pacer
	clock     func() time.Time
	skipErrs  bool
	metrics   Recorder
	logger    log.Logger

	mu        sync.Mutex
	ticks     uint64
	published uint64
	skipped   uint64
	paused    bool
	last      *cursor.Sample
}

// NewLoop validates opts and returns a Loop ready to Run.
func NewLoop(opts Options) (*Loop, error) {
	if opts.Hertz <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidRate, opts.Hertz)
	}
	if opts.Source == nil {
		return nil, errors.New("tracker: acquisition source is required")
	}
	if opts.Input == nil {
		return nil, errors.New("tracker: console input is required")
	}

	l := &Loop{
		hertz:     opts.Hertz,
		interval:  Interval(opts.Hertz),
		publisher: opts.Publisher,
		input:     opts.Input,
		out:       opts.Output,
		state:     opts.State,
		pacer:     opts.Pacer,
		clock:     opts.Clock,
		skipErrs:  opts.SkipAcquireErrors,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if l.out == nil {
		l.out = io.Discard
	}
	if l.state == nil {
		l.state = NewState(true, true)
	}
	if l.pacer == nil {
		l.pacer = NewSleepPacer(l.interval, nil)
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.metrics == nil {
		l.metrics = nopRecorder{}
	}
	if l.logger == nil {
		l.logger = log.NewDiscardLogger()
	}
	l.sampler = cursor.NewSampler(opts.Source, l.clock)

	l.metrics.SetStreaming(l.state.Streaming())
	l.metrics.SetDisplay(l.state.Display())
	return l, nil
}

// State returns the loop's toggles.
func (l *Loop) State() *State {
	return l.state
}

// Interval returns the pause between ticks.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Run ticks until an exit command, ctx cancellation or a fatal error. It
// returns nil for the first two.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Infof("Sampling at %d Hz (interval %v), streaming=%v display=%v",
		l.hertz, l.interval, l.state.Streaming(), l.state.Display())
	l.sampler.Start()

	for {
		if ctx.Err() != nil {
			l.logger.Infof("Sampling loop cancelled")
			return nil
		}

		exit, err := l.Tick(ctx)
		if err != nil {
			return err
		}
		if exit {
			return nil
		}

		if err := l.pacer.Pace(ctx); err != nil {
			if ctx.Err() != nil {
				l.logger.Infof("Sampling loop cancelled")
				return nil
			}
			return fmt.Errorf("pacing: %w", err)
		}
	}
}

// Tick runs one iteration without pacing. exit is true when an exit command
// was read; nothing is acquired, published or rendered in that case.
func (l *Loop) Tick(ctx context.Context) (exit bool, err error) {
	start := l.clock()

	for {
		ev, ok := l.input.Poll()
		if !ok {
			break
		}
		if stop, err := l.dispatch(ctx, ev); err != nil || stop {
			return stop, err
		}
	}

	sample, err := l.sampler.Acquire()
	if err != nil {
		if !l.skipErrs {
			return false, err
		}
		l.logger.Warnf("Skipping sample: %v", err)
		l.metrics.AcquisitionSkipped()
		l.mu.Lock()
		l.skipped++
		l.mu.Unlock()
		return false, nil
	}

	l.mu.Lock()
	l.ticks++
	count := l.ticks
	l.last = &sample
	l.mu.Unlock()

	streaming := l.state.Streaming()
	if streaming && l.publisher != nil {
		if err := l.publisher.PushSample(sample.Channels()); err != nil {
			return false, fmt.Errorf("publish sample %d: %w", count, err)
		}
		l.metrics.SamplePublished()
		l.mu.Lock()
		l.published++
		l.mu.Unlock()
	}

	if l.state.Display() {
		if err := RenderTelemetry(l.out, count, sample, streaming); err != nil {
			l.logger.Debugf("Telemetry write failed: %v", err)
		}
	}

	l.metrics.TickObserved(l.clock().Sub(start))
	return false, nil
}

// dispatch applies one console event.
func (l *Loop) dispatch(ctx context.Context, ev console.Event) (exit bool, err error) {
	action := ActionFor(ev)
	if action == ActionNone {
		return false, nil
	}
	l.metrics.CommandDispatched(action.String())

	switch action {
	case ActionExit:
		l.println(msgExiting)
		return true, nil

	case ActionPause:
		l.println(msgPaused)
		l.setPaused(true)
		defer l.setPaused(false)

		if _, err := l.input.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			if errors.Is(err, console.ErrClosed) {
				l.logger.Warnf("Console input closed while paused, resuming")
				return false, nil
			}
			return false, fmt.Errorf("waiting for key: %w", err)
		}

	case ActionChangeRate:
		l.println(msgRateChange)
		l.logger.Warnf("Sample rate change requested; staying at %d Hz", l.hertz)

	case ActionToggleStream:
		on := l.state.ToggleStreaming()
		l.metrics.SetStreaming(on)
		l.println(fmt.Sprintf(msgStreamingOnFmt, on))

	case ActionToggleDisplay:
		on := l.state.ToggleDisplay()
		l.metrics.SetDisplay(on)
		if !on {
			l.println(msgDisplayOff)
		}
	}
	return false, nil
}

func (l *Loop) println(msg string) {
	fmt.Fprintln(l.out, msg)
}

func (l *Loop) setPaused(p bool) {
	l.mu.Lock()
	l.paused = p
	l.mu.Unlock()
}

// Status returns a snapshot of the loop. Safe for concurrent use.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := Status{
		Hertz:     l.hertz,
		Interval:  l.interval.String(),
		Streaming: l.state.Streaming(),
		Display:   l.state.Display(),
		Ticks:     l.ticks,
		Published: l.published,
		Skipped:   l.skipped,
		Paused:    l.paused,
	}
	if l.last != nil {
		last := *l.last
		st.LastSample = &last
	}
	return st
}
