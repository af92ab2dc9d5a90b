package hardware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBoard struct {
	lock       sync.Mutex
	speeds     [][2]int16
	raw        [2]int16
	failReads  bool
	closeCount int
}

func (b *fakeBoard) SetMotorSpeeds(left, right int16) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.speeds = append(b.speeds, [2]int16{left, right})
	return nil
}

func (b *fakeBoard) RawEncoderCounts() (left, right int16, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.failReads {
		return 0, 0, errors.New("bus error")
	}
	return b.raw[0], b.raw[1], nil
}

func (b *fakeBoard) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closeCount++
	return nil
}

func (b *fakeBoard) turn(l, r int16) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.raw[0] += l
	b.raw[1] += r
}

func (b *fakeBoard) lastSpeeds() [2]int16 {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.speeds) == 0 {
		return [2]int16{}
	}
	return b.speeds[len(b.speeds)-1]
}

func TestI2CControllerPushesSpeedsAndCounts(t *testing.T) {
	mock := clock.NewMock()
	board := &fakeBoard{raw: [2]int16{1000, -1000}}
	c := NewI2CController(mock, func() (MotorBoard, error) { return board, nil })

	_, _, err := c.EncoderCounts()
	assert.Equal(t, ErrNotReady, err)

	ctx, cancel := context.WithCancel(context.Background())
	var initDone, loopDone sync.WaitGroup
	initDone.Add(1)
	loopDone.Add(1)
	go func() {
		defer loopDone.Done()
		c.Loop(ctx, &initDone)
	}()
	initDone.Wait()

	c.SetSpeeds(150, -40000)
	mock.Add(i2cLoopInterval)
	require.Eventually(t, func() bool {
		_, _, err := c.EncoderCounts()
		return err == nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, [2]int16{150, -32768}, board.lastSpeeds())

	board.turn(90, -45)
	mock.Add(i2cLoopInterval)
	require.Eventually(t, func() bool {
		l, r, _ := c.EncoderCounts()
		return l == 90 && r == -45
	}, time.Second, time.Millisecond)

	cancel()
	mock.Add(i2cLoopInterval)
	loopDone.Wait()
	assert.Equal(t, [2]int16{0, 0}, board.lastSpeeds())
	assert.Equal(t, 1, board.closeCount)
}

func TestClampInt16(t *testing.T) {
	assert.Equal(t, int16(32767), clampInt16(1<<20))
	assert.Equal(t, int16(-32768), clampInt16(-(1 << 20)))
	assert.Equal(t, int16(-5), clampInt16(-5))
}
