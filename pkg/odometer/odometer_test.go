package odometer

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
)

type fakeEncoders struct {
	lock sync.Mutex
	l, r int
	err  error
}

func (f *fakeEncoders) EncoderCounts() (int, int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.l, f.r, f.err
}

func (f *fakeEncoders) set(l, r int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.l, f.r = l, r
}

func newTestOdometer(clk clock.Clock) (*Odometer, *fakeEncoders) {
	enc := &fakeEncoders{}
	res := &robot.Resources{
		Encoders: enc,
		Geometry: robot.DefaultGeometry(),
		Clock:    clk,
	}
	return New(res, DefaultParams()), enc
}

func TestInitialPose(t *testing.T) {
	odo, _ := newTestOdometer(clock.NewMock())
	p := odo.Pose()
	assert.Equal(t, 0.0, p.Position.X())
	assert.Equal(t, 0.0, p.Position.Y())
	assert.Equal(t, math.Pi/2, p.Heading)
}

func TestStationaryTicksLeavePoseAlone(t *testing.T) {
	odo, enc := newTestOdometer(clock.NewMock())
	enc.set(40, 40)
	odo.Update()
	before := odo.Pose()
	for i := 0; i < 100; i++ {
		odo.Update()
	}
	assert.Equal(t, before, odo.Pose())
}

func TestStraightLine(t *testing.T) {
	odo, enc := newTestOdometer(clock.NewMock())
	enc.set(100, 100)
	odo.Update()

	p := odo.Pose()
	dist := 100 * math.Pi * 2.1 / 180
	assert.InDelta(t, 0, p.Position.X(), 1e-6)
	assert.InDelta(t, dist, p.Position.Y(), 1e-6)
	assert.InDelta(t, math.Pi/2, p.Heading, 1e-6)
}

func TestPureRotation(t *testing.T) {
	odo, enc := newTestOdometer(clock.NewMock())
	enc.set(100, -100)
	odo.Update()

	p := odo.Pose()
	wheel := 100 * math.Pi * 2.1 / 180
	assert.InDelta(t, 0, p.Position.X(), 1e-6)
	assert.InDelta(t, 0, p.Position.Y(), 1e-6)
	assert.InDelta(t, math.Pi/2-2*wheel/16.8, p.Heading, 1e-6)
}

func TestHeadingStaysNormalised(t *testing.T) {
	odo, enc := newTestOdometer(clock.NewMock())
	// Keep spinning clockwise through 0.
	for i := 1; i <= 50; i++ {
		enc.set(i*60, -i*60)
		odo.Update()
		h := odo.Heading()
		assert.True(t, h >= 0 && h < geom.TwoPi, "heading %v out of range", h)
	}
}

func TestEncoderErrorSkipsTick(t *testing.T) {
	odo, enc := newTestOdometer(clock.NewMock())
	enc.set(50, 50)
	odo.Update()
	before := odo.Pose()

	enc.lock.Lock()
	enc.err = errors.New("not ready")
	enc.l, enc.r = 500, 100
	enc.lock.Unlock()
	odo.Update()
	assert.Equal(t, before, odo.Pose())

	// The skipped motion is picked up once reads succeed again.
	enc.lock.Lock()
	enc.err = nil
	enc.l, enc.r = 150, 150
	enc.lock.Unlock()
	odo.Update()
	assert.InDelta(t, before.Position.Y()+100*math.Pi*2.1/180, odo.Position().Y(), 1e-6)
}

func TestSetters(t *testing.T) {
	odo, _ := newTestOdometer(clock.NewMock())
	odo.SetPosition(geom.V(3, 4))
	odo.SetHeading(-math.Pi / 2)
	p := odo.Pose()
	assert.Equal(t, geom.V(3, 4), p.Position)
	assert.InDelta(t, 3*math.Pi/2, p.Heading, 1e-9)
}

func TestRunsOnClock(t *testing.T) {
	mock := clock.NewMock()
	odo, enc := newTestOdometer(mock)
	odo.Start()
	defer odo.Stop()

	enc.set(100, 100)
	mock.Add(5 * time.Millisecond)
	require.Eventually(t, func() bool {
		return odo.Position().Y() > 3
	}, time.Second, time.Millisecond)
}
