package localization

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
)

const gridLines = 4

type LightParams struct {
	RotationSpeed int     `yaml:"rotation-speed"`
	Threshold     float64 `yaml:"threshold"`
	Hysteresis    float64 `yaml:"hysteresis"`
	ApproachCM    float64 `yaml:"approach-cm"`
	PollMS        int     `yaml:"poll-ms"`
}

func DefaultLightParams() LightParams {
	return LightParams{
		RotationSpeed: 160,
		Threshold:     0.08,
		Hysteresis:    0.01,
		ApproachCM:    15,
		PollMS:        115,
	}
}

type LightResult struct {
	// Headings, in radians, at which the sensor came off each line.
	Angles [gridLines]float64
	// Offset of the rotation centre from the intersection.
	Offset geom.Vec2
}

// LightGrid finds the robot's position relative to the nearest grid
// intersection.  The light sensor sits behind the rotation centre, so
// spinning on the spot sweeps it round a circle that crosses both lines
// twice.
type LightGrid struct {
	res    *robot.Resources
	odo    PoseEstimator
	sensor hardware.IntensityProvider
	params LightParams
}

func NewLightGrid(res *robot.Resources, odo PoseEstimator, sensor hardware.IntensityProvider, p LightParams) *LightGrid {
	return &LightGrid{
		res:    res,
		odo:    odo,
		sensor: sensor,
		params: p,
	}
}

// GridOffset converts the latched headings into the rotation centre's
// offset from the intersection.  Latches 0 and 2 are the two crossings of
// one line, 1 and 3 of the other.  Headings decrease while spinning
// clockwise, so each span is taken clockwise from the earlier latch.
func GridOffset(angles [gridLines]float64, sensorOffset float64) geom.Vec2 {
	xTheta := geom.FixAngle(angles[0] - angles[2])
	yTheta := geom.FixAngle(angles[1] - angles[3])
	x := -sensorOffset * math.Cos(yTheta/2)
	y := -sensorOffset * math.Cos(xTheta/2)
	return geom.V(x, y)
}

func (l *LightGrid) intensity(ctx context.Context) (float64, error) {
	y := l.res.Yielder(5 * time.Millisecond)
	for {
		if s, err := l.sensor.Sample(); err == nil && len(s) > 0 {
			return s[0], nil
		}
		if err := y.Yield(ctx); err != nil {
			return 0, err
		}
	}
}

func (l *LightGrid) Localize(ctx context.Context, nav Navigator) (LightResult, error) {
	var res LightResult
	speed := l.params.RotationSpeed
	fmt.Println("LL: Starting light localization")

	l.res.Drive.SetSpeeds(0, 0)
	nav.SetRotationSpeed(speed)
	if err := nav.TurnTo(ctx, math.Pi/4, true); err != nil {
		return res, err
	}
	approach := l.res.Geometry.ConvertDistance(l.params.ApproachCM)
	if err := l.res.RotateWheels(ctx, approach, approach, speed); err != nil {
		return res, err
	}

	prev, err := l.intensity(ctx)
	if err != nil {
		return res, err
	}
	y := l.res.Yielder(time.Duration(l.params.PollMS) * time.Millisecond)
	cutoff := l.params.Threshold + l.params.Hysteresis
	for n := 0; n < gridLines; {
		l.res.Drive.SetSpeeds(speed, -speed)
		if s, err := l.sensor.Sample(); err == nil && len(s) > 0 {
			delta := s[0] - prev
			// Positive means the sensor has just left a dark line.
			if math.Abs(delta) > cutoff && delta > 0 {
				res.Angles[n] = l.odo.Pose().Heading
				fmt.Printf("LL: Line %d at %.1f°\n", n, geom.Degrees(res.Angles[n]))
				n++
			}
			prev = s[0]
		}
		if err := y.Yield(ctx); err != nil {
			l.res.Drive.SetSpeeds(0, 0)
			return res, err
		}
	}
	l.res.Drive.SetSpeeds(0, 0)
	l.res.Notifier.Beep()

	res.Offset = GridOffset(res.Angles, l.res.Geometry.LightSensorOffset)
	l.odo.SetPosition(res.Offset)
	fmt.Println("LL: Offset from intersection", res.Offset)

	if err := nav.TravelTo(ctx, geom.V(0, 0), true); err != nil {
		return res, err
	}
	return res, nav.TurnTo(ctx, 0, true)
}
