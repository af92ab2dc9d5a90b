package hardware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/picobldc"
)

const i2cLoopInterval = 10 * time.Millisecond

// BoardOpener opens the motor board, returning it ready for use.
type BoardOpener func() (MotorBoard, error)

// I2CController owns the motor board.  Speeds are stored off and pushed to
// the board from the loop so the hardware can be re-initialised after a bus
// failure without losing the caller's intent.
type I2CController struct {
	clock clock.Clock
	open  BoardOpener

	lock sync.Mutex
	// Desired values.
	motorL, motorR int16

	tracker    *picobldc.EncoderTracker
	counts     picobldc.PerMotorVal[int64]
	haveCounts bool
}

func NewI2CController(clk clock.Clock, open BoardOpener) *I2CController {
	if clk == nil {
		clk = clock.New()
	}
	return &I2CController{
		clock: clk,
		open:  open,
	}
}

func clampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func (c *I2CController) SetSpeeds(left, right int) {
	c.lock.Lock()
	c.motorL = clampInt16(left)
	c.motorR = clampInt16(right)
	c.lock.Unlock()
}

func (c *I2CController) EncoderCounts() (left, right int, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.haveCounts {
		return 0, 0, ErrNotReady
	}
	return int(c.counts[picobldc.Left]), int(c.counts[picobldc.Right]), nil
}

func (c *I2CController) Loop(ctx context.Context, initDone *sync.WaitGroup) {
	fmt.Println("HW: I2C loop started")
	for {
		c.loopUntilSomethingBadHappens(ctx, initDone)
		if ctx.Err() != nil {
			return
		}
		fmt.Println("===== !!! WARNING !!! I2C FAILURE; TRYING TO RECOVER =====")
		initDone = nil
		c.clock.Sleep(100 * time.Millisecond)
	}
}

func (c *I2CController) loopUntilSomethingBadHappens(ctx context.Context, initDone *sync.WaitGroup) {
	defer func() {
		if initDone != nil {
			initDone.Done()
		}
	}()

	board, err := c.open()
	if err != nil {
		fmt.Println("HW: Failed to open motor board", err)
		return
	}
	defer func() {
		if err := board.Close(); err != nil {
			fmt.Println("HW: Failed to close motor board", err)
		}
	}()

	if c.tracker == nil {
		c.tracker = picobldc.NewEncoderTracker(board)
	} else {
		c.tracker.Rebase(board)
	}

	ticker := c.clock.Ticker(i2cLoopInterval)
	defer ticker.Stop()

	var lastL, lastR int16
	first := true

	if initDone != nil {
		initDone.Done()
		initDone = nil
	}

	for {
		select {
		case <-ctx.Done():
			_ = board.SetMotorSpeeds(0, 0)
			return
		case <-ticker.C:
		}

		c.lock.Lock()
		l, r := c.motorL, c.motorR
		c.lock.Unlock()
		if first || lastL != l || lastR != r {
			if err := board.SetMotorSpeeds(l, r); err != nil {
				fmt.Println("HW: Failed to update motor speeds", err)
				return
			}
			lastL, lastR = l, r
			first = false
		}

		if err := c.tracker.Poll(); err != nil {
			fmt.Println("HW: Failed to read encoders", err)
			return
		}
		c.lock.Lock()
		c.counts = c.tracker.Accumulated()
		c.haveCounts = true
		c.lock.Unlock()
	}
}
