package hardware

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
)

func TestSimDrivesStraight(t *testing.T) {
	p := DefaultSimParams()
	p.Start = geom.Pose{Position: geom.V(50, 50), Heading: 0}
	s := NewSim(p)

	s.SetSpeeds(180, 180)
	for i := 0; i < 200; i++ {
		s.Step(5 * time.Millisecond)
	}
	// One second at 180 deg/s is half a wheel turn.
	l, r, err := s.EncoderCounts()
	require.NoError(t, err)
	assert.Equal(t, 180, l)
	assert.Equal(t, 180, r)

	pose := s.TruePose()
	assert.InDelta(t, 50+math.Pi*2.1, pose.Position.X(), 1e-6)
	assert.InDelta(t, 50, pose.Position.Y(), 1e-6)
	assert.InDelta(t, 0, pose.Heading, 1e-9)
	assert.Equal(t, time.Second, s.Elapsed())
}

func TestSimSpinsOnTheSpot(t *testing.T) {
	p := DefaultSimParams()
	p.Start = geom.Pose{Position: geom.V(50, 50), Heading: math.Pi / 2}
	s := NewSim(p)

	// Left wheel forwards turns clockwise.
	s.SetSpeeds(100, -100)
	s.Step(time.Second)
	pose := s.TruePose()
	wheel := 100 * math.Pi * 2.1 / 180
	assert.InDelta(t, math.Pi/2-2*wheel/16.8, pose.Heading, 1e-9)
	assert.InDelta(t, 50, pose.Position.X(), 1e-9)
	assert.InDelta(t, 50, pose.Position.Y(), 1e-9)
}

func TestSimRanges(t *testing.T) {
	p := DefaultSimParams()
	p.Start = geom.Pose{Position: geom.V(20, 10), Heading: math.Pi}
	s := NewSim(p)

	front, _ := s.FrontDistance().Sample()
	assert.Equal(t, []int{20}, front, "facing the x=0 wall")
	side, _ := s.SideDistance().Sample()
	assert.Equal(t, []int{10}, side, "left side faces the y=0 wall")

	s.Place(geom.Pose{Position: geom.V(20, 10), Heading: math.Pi / 2})
	front, _ = s.FrontDistance().Sample()
	assert.Equal(t, []int{SimMaxRange}, front, "nothing in front")
	side, _ = s.SideDistance().Sample()
	assert.Equal(t, []int{20}, side)
}

func TestSimFloorGrid(t *testing.T) {
	p := DefaultSimParams()
	// Sensor trails the centre by the offset.
	p.Start = geom.Pose{Position: geom.V(30.48+11.75, 15), Heading: 0}
	s := NewSim(p)
	v, _ := s.Light().Sample()
	assert.Equal(t, []float64{SimLineIntensity}, v)

	s.Place(geom.Pose{Position: geom.V(30.48+11.75+5, 15), Heading: 0})
	v, _ = s.Light().Sample()
	assert.Equal(t, []float64{SimFloor}, v)
}

func TestSimPacer(t *testing.T) {
	s := NewSim(DefaultSimParams())
	hooks := 0
	pacer := s.NewPacer(5*time.Millisecond, func() { hooks++ })
	ticks := 0
	pacer.Every(20*time.Millisecond, func() {
		ticks++
		// Nested yields step the body but don't re-enter.
		_ = pacer.Yield(context.Background())
	})

	for i := 0; i < 8; i++ {
		require.NoError(t, pacer.Yield(context.Background()))
	}
	assert.Equal(t, 2, ticks)
	assert.Equal(t, 10, hooks)
	assert.Equal(t, 50*time.Millisecond, s.Elapsed())
	assert.Equal(t, time.Unix(0, 0).Add(50*time.Millisecond), pacer.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, pacer.Yield(ctx))
}

func TestSimNotifications(t *testing.T) {
	s := NewSim(DefaultSimParams())
	s.Beep()
	s.BeepSequenceUp()
	s.BeepSequenceUp()
	b, u, z := s.Notifications()
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, u)
	assert.Equal(t, 0, z)
}
