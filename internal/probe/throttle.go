package probe

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time so tests can assert exact throttle sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Throttle enforces a minimum interval between the completion of one request
// and the start of the next. A single Throttle is shared by every probe of a
// run, which serializes outbound traffic regardless of domain count.
type Throttle struct {
	clock    Clock
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewThrottle(interval time.Duration, clock Clock) *Throttle {
	if clock == nil {
		clock = SystemClock
	}
	return &Throttle{clock: clock, interval: interval}
}

// Wait sleeps for whatever remains of the interval since the last Done.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	last := t.last
	t.mu.Unlock()

	if last.IsZero() || t.interval <= 0 {
		return nil
	}

	remaining := t.interval - t.clock.Now().Sub(last)
	if remaining <= 0 {
		return nil
	}
	return t.clock.Sleep(ctx, remaining)
}

// Done marks the completion of a request.
func (t *Throttle) Done() {
	t.mu.Lock()
	t.last = t.clock.Now()
	t.mu.Unlock()
}

func (t *Throttle) Interval() time.Duration { return t.interval }
