package localization

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
)

type Edge int

const (
	FallingEdge Edge = iota
	RisingEdge
)

func (e Edge) String() string {
	switch e {
	case FallingEdge:
		return "falling"
	case RisingEdge:
		return "rising"
	}
	return fmt.Sprintf("Edge(%d)", int(e))
}

func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(s) {
	case "falling", "us-falling":
		return FallingEdge, nil
	case "rising", "us-rising":
		return RisingEdge, nil
	}
	return 0, errors.Errorf("unknown edge type %q", s)
}

type UltrasonicParams struct {
	RotationSpeed int `yaml:"rotation-speed"`
	Ceiling       int `yaml:"ceiling"`
	NoiseMargin   int `yaml:"noise-margin"`
	DebounceMS    int `yaml:"debounce-ms"`
	PollMS        int `yaml:"poll-ms"`
}

func DefaultUltrasonicParams() UltrasonicParams {
	return UltrasonicParams{
		RotationSpeed: 200,
		Ceiling:       50,
		NoiseMargin:   20,
		DebounceMS:    2000,
		PollMS:        5,
	}
}

// UltrasonicResult records the two latched headings, in degrees, and the
// correction that was applied.
type UltrasonicResult struct {
	AngleA, AngleB float64
	Correction     float64
}

// Ultrasonic finds the heading by spinning on the spot in a corner and
// latching the headings at which the front sensor's view of the walls
// starts or stops.
type Ultrasonic struct {
	res    *robot.Resources
	odo    PoseEstimator
	sensor hardware.DistanceProvider
	edge   Edge
	params UltrasonicParams
}

func NewUltrasonic(res *robot.Resources, odo PoseEstimator, sensor hardware.DistanceProvider, edge Edge, p UltrasonicParams) *Ultrasonic {
	return &Ultrasonic{
		res:    res,
		odo:    odo,
		sensor: sensor,
		edge:   edge,
		params: p,
	}
}

// HeadingCorrection returns the angle, in degrees, to add to the odometer
// heading given the two latched headings, which bracket the corner.  The
// two branches cover either order of A and B in [0, 360).
func HeadingCorrection(angleA, angleB float64) float64 {
	if angleA < angleB {
		return 45 - (angleA+angleB)/2
	}
	return 225 - (angleA+angleB)/2
}

type spin int

const (
	clockwise spin = iota
	anticlockwise
)

func (u *Ultrasonic) spin(dir spin) {
	s := u.params.RotationSpeed
	if dir == clockwise {
		u.res.Drive.SetSpeeds(s, -s)
	} else {
		u.res.Drive.SetSpeeds(-s, s)
	}
}

// distance is the latest reading clamped to the ceiling.
func (u *Ultrasonic) distance() (int, bool) {
	s, err := u.sensor.Sample()
	if err != nil || len(s) == 0 {
		return 0, false
	}
	if s[0] >= u.params.Ceiling {
		return u.params.Ceiling, true
	}
	return s[0], true
}

func (u *Ultrasonic) noWall(d int) bool {
	return d == u.params.Ceiling
}

func (u *Ultrasonic) wall(d int) bool {
	return d < u.params.Ceiling-u.params.NoiseMargin
}

// rotateUntil spins until cond holds for a reading.
func (u *Ultrasonic) rotateUntil(ctx context.Context, dir spin, cond func(d int) bool) error {
	y := u.res.Yielder(time.Duration(u.params.PollMS) * time.Millisecond)
	for {
		u.spin(dir)
		if d, ok := u.distance(); ok && cond(d) {
			return nil
		}
		if err := y.Yield(ctx); err != nil {
			return err
		}
	}
}

func (u *Ultrasonic) latch(name string) float64 {
	a := geom.Degrees(u.odo.Pose().Heading)
	fmt.Printf("USL: Latched %s at %.1f°\n", name, a)
	u.res.Notifier.Beep()
	return a
}

func (u *Ultrasonic) Localize(ctx context.Context, nav Navigator) (UltrasonicResult, error) {
	var res UltrasonicResult
	fmt.Println("USL: Starting", u.edge, "edge localization")

	var err error
	switch u.edge {
	case FallingEdge:
		res.AngleA, res.AngleB, err = u.fallingEdge(ctx)
	case RisingEdge:
		res.AngleA, res.AngleB, err = u.risingEdge(ctx)
	default:
		err = errors.Errorf("unknown edge type %v", u.edge)
	}
	u.res.Drive.SetSpeeds(0, 0)
	if err != nil {
		return res, err
	}

	res.Correction = HeadingCorrection(res.AngleA, res.AngleB)
	corrected := res.Correction + geom.Degrees(u.odo.Pose().Heading)
	u.odo.SetHeading(geom.Radians(corrected))
	fmt.Printf("USL: A=%.1f° B=%.1f° correction=%.1f° heading now %.1f°\n",
		res.AngleA, res.AngleB, res.Correction, geom.Degrees(u.odo.Pose().Heading))

	nav.SetRotationSpeed(u.params.RotationSpeed)
	return res, nav.TurnTo(ctx, 0, true)
}

// fallingEdge faces away from the walls, then latches the heading at which
// each wall comes into view, turning clockwise for the first and back
// anticlockwise for the second.
func (u *Ultrasonic) fallingEdge(ctx context.Context) (a, b float64, err error) {
	window := time.Duration(u.params.DebounceMS) * time.Millisecond
	deb := newDebounce(u.res.Now, window)

	if err = u.rotateUntil(ctx, clockwise, u.noWall); err != nil {
		return
	}
	deb.Reset()
	if err = u.rotateUntil(ctx, clockwise, func(d int) bool {
		return u.wall(d) && deb.Settled()
	}); err != nil {
		return
	}
	a = u.latch("A")

	deb.Reset()
	sawNoWall := false
	if err = u.rotateUntil(ctx, anticlockwise, func(d int) bool {
		if u.noWall(d) {
			sawNoWall = true
		}
		return sawNoWall && deb.Settled()
	}); err != nil {
		return
	}
	if err = u.rotateUntil(ctx, anticlockwise, u.wall); err != nil {
		return
	}
	b = u.latch("B")
	return
}

// risingEdge faces into the corner, then latches the heading at which each
// wall drops out of view, turning clockwise for the first and back
// anticlockwise for the second.
func (u *Ultrasonic) risingEdge(ctx context.Context) (a, b float64, err error) {
	window := time.Duration(u.params.DebounceMS) * time.Millisecond
	deb := newDebounce(u.res.Now, window)

	if err = u.rotateUntil(ctx, clockwise, u.wall); err != nil {
		return
	}
	deb.Reset()
	if err = u.rotateUntil(ctx, clockwise, func(d int) bool {
		return u.noWall(d) && deb.Settled()
	}); err != nil {
		return
	}
	b = u.latch("B")

	deb.Reset()
	if err = u.rotateUntil(ctx, anticlockwise, func(d int) bool {
		return u.wall(d) && deb.Settled()
	}); err != nil {
		return
	}
	if err = u.rotateUntil(ctx, anticlockwise, u.noWall); err != nil {
		return
	}
	a = u.latch("A")
	return
}
