package clock

import (
	"context"
	"time"
)

// Clock allows injecting time in services. Sleep exists so the gateway
// poll loop can run instantly under test.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now and real timers.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock pinned to one instant whose Sleep returns
// immediately (useful for tests).
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

func (f fixedClock) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
