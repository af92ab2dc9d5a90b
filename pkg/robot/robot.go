// Package robot holds the explicitly constructed set of devices and
// constants that every controller is built from.
package robot

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/poll"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/screen"
)

type Geometry struct {
	LeftWheelRadius   float64 `yaml:"left-wheel-radius"`
	RightWheelRadius  float64 `yaml:"right-wheel-radius"`
	Track             float64 `yaml:"track"`
	AngleScale        float64 `yaml:"angle-scale"`
	LightSensorOffset float64 `yaml:"light-sensor-offset"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		LeftWheelRadius:   chassis.WheelRadiusCM,
		RightWheelRadius:  chassis.WheelRadiusCM,
		Track:             chassis.TrackCM,
		AngleScale:        chassis.AngleScale,
		LightSensorOffset: chassis.LightSensorOffsetCM,
	}
}

// ConvertDistance returns the wheel rotation in degrees that moves the wheel
// rim through distance cm.
func (g Geometry) ConvertDistance(distance float64) int {
	r := (g.LeftWheelRadius + g.RightWheelRadius) / 2
	return int(180 * distance / (math.Pi * r))
}

// ConvertAngle returns the wheel rotation in degrees that spins the robot on
// the spot through angle degrees.
func (g Geometry) ConvertAngle(angle float64) int {
	return g.ConvertDistance(math.Pi * g.Track * angle / 360)
}

// Resources is everything a controller may touch.  It is built once at
// startup and passed to each component's constructor.
type Resources struct {
	Drive    hardware.Drive
	Encoders hardware.EncoderSource
	Front    hardware.DistanceProvider
	Side     hardware.DistanceProvider
	Light    hardware.IntensityProvider
	Notifier hardware.Notifier
	Display  *screen.Display

	Geometry Geometry
	Clock    clock.Clock

	// Pacer, if set, replaces sleeping in every busy-polling loop.  The
	// simulator uses it to advance time deterministically.
	Pacer Pacer
}

// Pacer is a yielder that advances time by a fixed step on each yield.
type Pacer interface {
	poll.Yielder
	Step() time.Duration
	Now() time.Time
}

func FromHardware(hw hardware.Interface, g Geometry, clk clock.Clock) *Resources {
	if clk == nil {
		clk = clock.New()
	}
	return &Resources{
		Drive:    hw,
		Encoders: hw,
		Front:    hw.FrontDistance(),
		Side:     hw.SideDistance(),
		Light:    hw.Light(),
		Notifier: hw,
		Display:  hw.Display(),
		Geometry: g,
		Clock:    clk,
	}
}

// Yielder returns the pause point for a loop polling at interval.
func (r *Resources) Yielder(interval time.Duration) poll.Yielder {
	if r.Pacer != nil {
		if interval < r.Pacer.Step() {
			return r.Pacer
		}
		return poll.YielderFunc(func(ctx context.Context) error {
			return r.Sleep(ctx, interval)
		})
	}
	return poll.NewSleeper(r.Clock, interval)
}

// Now is the current time on whichever clock drives the loops.
func (r *Resources) Now() time.Time {
	if r.Pacer != nil {
		return r.Pacer.Now()
	}
	return r.Clock.Now()
}

// Sleep pauses for d.  Under a pacer it yields enough steps to cover d.
func (r *Resources) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if r.Pacer == nil {
		return poll.NewSleeper(r.Clock, d).Yield(ctx)
	}
	steps := int((d + r.Pacer.Step() - 1) / r.Pacer.Step())
	for i := 0; i < steps; i++ {
		if err := r.Pacer.Yield(ctx); err != nil {
			return err
		}
	}
	return nil
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ErrManoeuvreTimeout is returned when the wheels do not reach their target
// within the time allowed.
var ErrManoeuvreTimeout = errors.New("wheels did not reach their target in time")

// RotateWheels drives each wheel through the given signed number of wheel
// degrees at speed, stopping each wheel as it gets there.  Both wheels are
// stopped on return.
func (r *Resources) RotateWheels(ctx context.Context, leftDeg, rightDeg, speed int) error {
	return r.RotateWheelsWithin(ctx, leftDeg, rightDeg, speed, 0)
}

// RotateWheelsWithin is RotateWheels giving up with ErrManoeuvreTimeout once
// limit has passed.  A limit of zero means no limit.  The commanded speeds
// are sent again on every poll, so a write from another loop only lasts one
// poll.
func (r *Resources) RotateWheelsWithin(ctx context.Context, leftDeg, rightDeg, speed int, limit time.Duration) error {
	y := r.Yielder(5 * time.Millisecond)
	start := r.Now()
	expired := func() bool {
		return limit > 0 && r.Now().Sub(start) >= limit
	}

	l0, r0, err := r.Encoders.EncoderCounts()
	for err != nil {
		if yerr := y.Yield(ctx); yerr != nil {
			return yerr
		}
		if expired() {
			return errors.Wrap(ErrManoeuvreTimeout, "no encoder reading")
		}
		l0, r0, err = r.Encoders.EncoderCounts()
	}

	leftSpeed, rightSpeed := sign(leftDeg)*speed, sign(rightDeg)*speed
	defer r.Drive.SetSpeeds(0, 0)
	for leftSpeed != 0 || rightSpeed != 0 {
		r.Drive.SetSpeeds(leftSpeed, rightSpeed)
		if err := y.Yield(ctx); err != nil {
			return err
		}
		l, rr, err := r.Encoders.EncoderCounts()
		if err == nil {
			if leftSpeed != 0 && abs(l-l0) >= abs(leftDeg) {
				leftSpeed = 0
			}
			if rightSpeed != 0 && abs(rr-r0) >= abs(rightDeg) {
				rightSpeed = 0
			}
		}
		if (leftSpeed != 0 || rightSpeed != 0) && expired() {
			return errors.Wrapf(ErrManoeuvreTimeout, "after %v", limit)
		}
	}
	return nil
}
