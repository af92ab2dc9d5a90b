package navigator

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/interrupt"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/simrig"
)

func newSimNavigator(start geom.Pose) (*Navigator, *simrig.Rig, *interrupt.Signal) {
	rig := simrig.New(start)
	sig := interrupt.New()
	return New(rig.Res, rig.Odometer, sig, DefaultParams()), rig, sig
}

var origin = geom.Pose{Position: geom.V(0, 0), Heading: math.Pi / 2}

func TestTurnSpeedsPicksShortArc(t *testing.T) {
	const rot = 200
	anticlockwise := [2]int{-rot, rot}
	clockwise := [2]int{rot, -rot}
	for _, tc := range []struct {
		err      float64
		expected [2]int
	}{
		{-math.Pi - 0.01, anticlockwise},
		{-2 * math.Pi, anticlockwise},
		{-math.Pi, clockwise},
		{-0.01, clockwise},
		{0, anticlockwise},
		{0.01, anticlockwise},
		{math.Pi, anticlockwise},
		{math.Pi + 0.01, clockwise},
		{2 * math.Pi, clockwise},
	} {
		l, r := turnSpeeds(tc.err, rot)
		assert.Equal(t, tc.expected, [2]int{l, r}, "error %v", tc.err)
	}
}

func TestTurnTo(t *testing.T) {
	nav, rig, _ := newSimNavigator(origin)
	require.NoError(t, nav.TurnTo(context.Background(), 0, true))

	assert.InDelta(t, 0, geom.MinimumAngleFromTo(rig.Odometer.Heading(), 0), geom.Radians(3))
	assert.InDelta(t, 0, geom.MinimumAngleFromTo(rig.Sim.TruePose().Heading, 0), geom.Radians(4))
	l, r := rig.Sim.Speeds()
	assert.Equal(t, 0, l)
	assert.Equal(t, 0, r)
	assert.Less(t, rig.PoseError(), 0.1, "turning should not move the body")
}

func TestTurnToAcrossZero(t *testing.T) {
	nav, rig, _ := newSimNavigator(origin)
	target := geom.Radians(315)
	require.NoError(t, nav.TurnTo(context.Background(), target, false))
	assert.True(t, geom.IsCloseTo(rig.Odometer.Heading(), target, geom.Radians(3)))
	// Clockwise through zero is the short way, and stop=false leaves the
	// wheels turning.
	l, r := rig.Sim.Speeds()
	assert.Equal(t, [2]int{200, -200}, [2]int{l, r})
}

func TestTravelTo(t *testing.T) {
	nav, rig, _ := newSimNavigator(origin)
	target := geom.V(30, 40)
	require.NoError(t, nav.TravelTo(context.Background(), target, true))

	assert.False(t, nav.IsNavigating())
	assert.True(t, rig.Odometer.Position().WithinTolerance(target, 1))
	assert.Less(t, rig.Sim.TruePose().Position.Sub(target).Norm(), 2.0)
	l, r := rig.Sim.Speeds()
	assert.Equal(t, [2]int{0, 0}, [2]int{l, r})
}

func TestTravelToInterrupted(t *testing.T) {
	nav, rig, sig := newSimNavigator(origin)
	sig.Set(true)
	require.NoError(t, nav.TravelTo(context.Background(), geom.V(0, 50), true))
	assert.True(t, nav.IsNavigating())
	assert.Equal(t, time.Duration(0), rig.Sim.Elapsed(), "should give up without moving")
}

func TestTravelToInterruptedWhileTurning(t *testing.T) {
	nav, rig, sig := newSimNavigator(origin)
	rig.Pacer.Every(500*time.Millisecond, func() { sig.Set(true) })
	// Due west, so the first thing it does is a quarter turn.
	require.NoError(t, nav.TravelTo(context.Background(), geom.V(-50, 0), true))

	assert.Less(t, rig.Sim.Elapsed(), 600*time.Millisecond)
	assert.Less(t, rig.Sim.TruePose().Heading, geom.Radians(135), "should stop turning once interrupted")
	l, r := rig.Sim.Speeds()
	assert.Equal(t, [2]int{0, 0}, [2]int{l, r})
}

func TestTurnToIgnoresInterrupt(t *testing.T) {
	nav, rig, sig := newSimNavigator(origin)
	sig.Set(true)
	require.NoError(t, nav.TurnTo(context.Background(), 0, true))
	assert.InDelta(t, 0, geom.MinimumAngleFromTo(rig.Odometer.Heading(), 0), geom.Radians(3))
}

func TestTravelToCancelled(t *testing.T) {
	nav, rig, _ := newSimNavigator(origin)
	ctx, cancel := context.WithCancel(context.Background())
	rig.Pacer.Every(time.Second, cancel)
	err := nav.TravelTo(ctx, geom.V(0, 500), true)
	assert.Equal(t, context.Canceled, err)
	l, r := rig.Sim.Speeds()
	assert.Equal(t, [2]int{0, 0}, [2]int{l, r})
}

func TestGoForward(t *testing.T) {
	nav, rig, _ := newSimNavigator(geom.Pose{Position: geom.V(10, 10), Heading: 0})
	require.NoError(t, nav.GoForward(context.Background(), 20))
	assert.True(t, rig.Odometer.Position().WithinTolerance(geom.V(30, 10), 1))
}

func TestSpeedsStoredAsMagnitudes(t *testing.T) {
	nav, _, _ := newSimNavigator(origin)
	nav.SetForwardSpeed(-150)
	nav.SetRotationSpeed(-90)
	assert.Equal(t, 150, nav.ForwardSpeed())
	assert.Equal(t, 90, nav.RotationSpeed())
	assert.NotNil(t, nav.Tunables.Find("rotation-speed"))
}

type fixedPose struct {
	lock sync.Mutex
	pose geom.Pose
}

func (f *fixedPose) Pose() geom.Pose {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.pose
}

type nullDrive struct{}

func (nullDrive) SetSpeeds(int, int) {}

func TestIsNavigatingTolerance(t *testing.T) {
	pose := &fixedPose{pose: geom.Pose{Position: geom.V(10, 10)}}
	res := &robot.Resources{Drive: nullDrive{}, Clock: clock.NewMock()}
	nav := New(res, pose, nil, DefaultParams())
	assert.False(t, nav.IsNavigating(), "target starts at the current position")

	// Already within tolerance, so this only records the target.
	require.NoError(t, nav.TravelTo(context.Background(), geom.V(11, 9), true))
	assert.False(t, nav.IsNavigating(), "exactly on the tolerance on both axes")

	pose.lock.Lock()
	pose.pose.Position = geom.V(10, 9)
	pose.lock.Unlock()
	assert.False(t, nav.IsNavigating())

	pose.lock.Lock()
	pose.pose.Position = geom.V(9.99, 9)
	pose.lock.Unlock()
	assert.True(t, nav.IsNavigating(), "x just outside tolerance")

	pose.lock.Lock()
	pose.pose.Position = geom.V(11, 10.01)
	pose.lock.Unlock()
	assert.True(t, nav.IsNavigating(), "y just outside tolerance")
}
