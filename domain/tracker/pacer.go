package tracker

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Interval is the pause between ticks at hertz samples per second, truncated
// to whole microseconds.
func Interval(hertz int) time.Duration {
	return time.Duration(1_000_000/hertz) * time.Microsecond
}

// Pacer spaces loop iterations.
type Pacer interface {
	Pace(ctx context.Context) error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SleepPacer sleeps a full interval after every tick, so the effective rate is
// below nominal by the time spent in the tick itself.
type SleepPacer struct {
	interval time.Duration
	sleep    Sleeper
}

// NewSleepPacer returns a pacer sleeping interval per call. A nil sleep uses
// SleepContext.
func NewSleepPacer(interval time.Duration, sleep Sleeper) *SleepPacer {
	if sleep == nil {
		sleep = SleepContext
	}
	return &SleepPacer{interval: interval, sleep: sleep}
}

func (p *SleepPacer) Pace(ctx context.Context) error {
	return p.sleep(ctx, p.interval)
}

// DeadlinePacer waits until the next tick deadline, absorbing the time spent
// in the tick.
type DeadlinePacer struct {
	limiter *rate.Limiter
}

// NewDeadlinePacer returns a pacer releasing one tick per interval.
func NewDeadlinePacer(interval time.Duration) *DeadlinePacer {
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// The first tick runs before the first Pace; spend its token now.
	limiter.Allow()
	return &DeadlinePacer{limiter: limiter}
}

func (p *DeadlinePacer) Pace(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
