package poll

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntilStopsWhenConditionMet(t *testing.T) {
	calls := 0
	yields := 0
	y := YielderFunc(func(ctx context.Context) error {
		yields++
		return nil
	})
	err := Until(context.Background(), y, func() bool {
		calls++
		return calls == 5
	})
	require.NoError(t, err)
	assert.Equal(t, 4, yields)
}

func TestUntilReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Until(ctx, NewSleeper(clock.New(), time.Millisecond), func() bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleeperWaitsForInterval(t *testing.T) {
	mock := clock.NewMock()
	s := NewSleeper(mock, 100*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- s.Yield(context.Background())
	}()

	// Give the goroutine time to register its timer with the mock.
	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Yield returned before the interval elapsed")
	default:
	}

	mock.Add(100 * time.Millisecond)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Yield did not return after the interval")
	}
}

func TestZeroIntervalSleeperDoesNotBlock(t *testing.T) {
	s := NewSleeper(clock.NewMock(), 0)
	assert.NoError(t, s.Yield(context.Background()))
}
