// Package navigator drives the robot to waypoints and headings using the
// odometer's pose estimate.
package navigator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/interrupt"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/poll"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/tunable"
)

type Params struct {
	ForwardSpeed      int     `yaml:"forward-speed"`
	RotationSpeed     int     `yaml:"rotation-speed"`
	PositionTolerance float64 `yaml:"position-tolerance"`
	AngleToleranceDeg float64 `yaml:"angle-tolerance-deg"`
	PollMS            int     `yaml:"poll-ms"`
}

func DefaultParams() Params {
	return Params{
		ForwardSpeed:      200,
		RotationSpeed:     200,
		PositionTolerance: 1.0,
		AngleToleranceDeg: 3,
		PollMS:            5,
	}
}

// PoseSource is the read side of the odometer.
type PoseSource interface {
	Pose() geom.Pose
}

// Navigator turns and drives in straight lines until the pose estimate is
// within tolerance of the goal.  It is not safe to run two moves at once.
type Navigator struct {
	res       *robot.Resources
	odo       PoseSource
	interrupt *interrupt.Signal
	params    Params

	Tunables      tunable.Tunables
	forwardSpeed  *tunable.Tunable
	rotationSpeed *tunable.Tunable

	lock   sync.Mutex
	target geom.Vec2
}

// New builds a navigator.  sig may be nil if nothing will ever interrupt
// travel.
func New(res *robot.Resources, odo PoseSource, sig *interrupt.Signal, p Params) *Navigator {
	n := &Navigator{
		res:       res,
		odo:       odo,
		interrupt: sig,
		params:    p,
	}
	n.forwardSpeed = n.Tunables.Create("forward-speed", abs(p.ForwardSpeed))
	n.rotationSpeed = n.Tunables.Create("rotation-speed", abs(p.RotationSpeed))
	// No target yet: sit on the current position.
	n.target = odo.Pose().Position
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (n *Navigator) interrupted() bool {
	return n.interrupt != nil && n.interrupt.Get()
}

func (n *Navigator) yielder() poll.Yielder {
	return n.res.Yielder(time.Duration(n.params.PollMS) * time.Millisecond)
}

func (n *Navigator) SetForwardSpeed(v int) {
	n.forwardSpeed.Set(abs(v))
}

func (n *Navigator) SetRotationSpeed(v int) {
	n.rotationSpeed.Set(abs(v))
}

func (n *Navigator) ForwardSpeed() int {
	return n.forwardSpeed.Get()
}

func (n *Navigator) RotationSpeed() int {
	return n.rotationSpeed.Get()
}

func (n *Navigator) Target() geom.Vec2 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.target
}

func (n *Navigator) setTarget(t geom.Vec2) {
	n.lock.Lock()
	n.target = t
	n.lock.Unlock()
	if n.res.Display != nil {
		n.res.Display.SetTarget(&t)
	}
}

// IsNavigating is true while either axis of the distance to the target is
// outside the position tolerance.
func (n *Navigator) IsNavigating() bool {
	return !n.odo.Pose().Position.WithinTolerance(n.Target(), n.params.PositionTolerance)
}

// TurnTo rotates on the spot until the heading is within tolerance of
// angle (radians).  It does not check the interrupt signal.
func (n *Navigator) TurnTo(ctx context.Context, angle float64, stop bool) error {
	return n.turn(ctx, angle, stop, false)
}

// turn is TurnTo, optionally giving up as soon as the interrupt is set.
func (n *Navigator) turn(ctx context.Context, angle float64, stop, interruptible bool) error {
	y := n.yielder()
	tol := geom.Radians(n.params.AngleToleranceDeg)
	for !interruptible || !n.interrupted() {
		err := angle - n.odo.Pose().Heading
		if math.Abs(err) <= tol {
			break
		}
		rot := n.rotationSpeed.Get()
		n.res.Drive.SetSpeeds(turnSpeeds(err, rot))
		if yerr := y.Yield(ctx); yerr != nil {
			n.res.Drive.SetSpeeds(0, 0)
			return yerr
		}
	}
	if stop {
		n.res.Drive.SetSpeeds(0, 0)
	}
	return nil
}

// turnSpeeds picks the wheel speeds that turn the short way round for an
// unwrapped heading error.  Positive error turns anticlockwise.
func turnSpeeds(err float64, rot int) (left, right int) {
	switch {
	case err < -math.Pi:
		return -rot, rot
	case err < 0:
		return rot, -rot
	case err > math.Pi:
		return rot, -rot
	default:
		return -rot, rot
	}
}

// TravelTo turns towards the target and drives at it until within
// tolerance, re-aiming every iteration.  It gives up early, leaving the
// target unreached, if the interrupt signal is set.
func (n *Navigator) TravelTo(ctx context.Context, target geom.Vec2, stop bool) error {
	n.setTarget(target)
	y := n.yielder()
	pos := n.odo.Pose().Position
	for !pos.WithinTolerance(target, n.params.PositionTolerance) && !n.interrupted() {
		bearing := target.Sub(pos).Angle()
		if err := n.turn(ctx, bearing, true, true); err != nil {
			return err
		}
		if n.interrupted() {
			break
		}
		fwd := n.forwardSpeed.Get()
		n.res.Drive.SetSpeeds(fwd, fwd)
		if err := y.Yield(ctx); err != nil {
			n.res.Drive.SetSpeeds(0, 0)
			return err
		}
		pos = n.odo.Pose().Position
	}
	if n.interrupted() {
		fmt.Println("NAV: Interrupted on the way to", target)
	}
	if stop {
		n.res.Drive.SetSpeeds(0, 0)
	}
	return nil
}

// GoForward travels distance along the current heading.
func (n *Navigator) GoForward(ctx context.Context, distance float64) error {
	pose := n.odo.Pose()
	return n.TravelTo(ctx, pose.Position.Add(geom.Polar(distance, pose.Heading)), true)
}
