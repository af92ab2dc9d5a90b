package poll

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Yielder is the pause point of a busy-polling control loop.  Each loop
// iteration calls Yield once; an error means the loop must stop.
type Yielder interface {
	Yield(ctx context.Context) error
}

// YielderFunc adapts a function to a Yielder.
type YielderFunc func(ctx context.Context) error

func (f YielderFunc) Yield(ctx context.Context) error {
	return f(ctx)
}

// Sleeper yields by sleeping for a fixed interval.
type Sleeper struct {
	Clock    clock.Clock
	Interval time.Duration
}

func NewSleeper(clk clock.Clock, interval time.Duration) *Sleeper {
	if clk == nil {
		clk = clock.New()
	}
	return &Sleeper{Clock: clk, Interval: interval}
}

func (s *Sleeper) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Interval <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.Clock.After(s.Interval):
		return nil
	}
}

// Until yields until cond returns true.  There is no timeout; only the
// context ends a loop whose condition never becomes true.
func Until(ctx context.Context, y Yielder, cond func() bool) error {
	for !cond() {
		if err := y.Yield(ctx); err != nil {
			return err
		}
	}
	return nil
}
