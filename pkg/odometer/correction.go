package odometer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/periodic"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
)

type CorrectionParams struct {
	GridSpacing   float64 `yaml:"grid-spacing"`
	Threshold     float64 `yaml:"threshold"`
	TickMS        int     `yaml:"tick-ms"`
	SnapTolerance float64 `yaml:"snap-tolerance"`
}

func DefaultCorrectionParams() CorrectionParams {
	return CorrectionParams{
		GridSpacing:   30.48,
		Threshold:     0.18,
		TickMS:        5,
		SnapTolerance: 5,
	}
}

// GridCorrector watches the floor light sensor and pulls the odometer back
// onto the grid each time the sensor leaves a grid line.
type GridCorrector struct {
	res    *robot.Resources
	odo    *Odometer
	params CorrectionParams
	task   *periodic.Task

	lock        sync.Mutex
	prev        float64
	havePrev    bool
	corrections int
}

var (
	_ periodic.Runner = (*GridCorrector)(nil)
	_ periodic.Ticker = (*GridCorrector)(nil)
)

func NewGridCorrector(res *robot.Resources, odo *Odometer, p CorrectionParams) *GridCorrector {
	c := &GridCorrector{
		res:    res,
		odo:    odo,
		params: p,
	}
	c.task = periodic.Schedule(res.Clock, time.Duration(p.TickMS)*time.Millisecond, c)
	return c
}

func (c *GridCorrector) Tick() {
	samples, err := c.res.Light.Sample()
	if err != nil || len(samples) == 0 {
		return
	}
	intensity := samples[0]

	c.lock.Lock()
	defer c.lock.Unlock()
	delta := intensity - c.prev
	leaving := c.havePrev && delta > c.params.Threshold
	c.prev = intensity
	c.havePrev = true
	if !leaving {
		return
	}

	pose := c.odo.Pose()
	corrected, ok := c.snap(pose)
	if !ok {
		return
	}
	c.corrections++
	c.odo.SetPosition(corrected)
}

// snap returns the robot position that puts the light sensor exactly on the
// grid line it has just crossed, if it is close enough to one.
func (c *GridCorrector) snap(pose geom.Pose) (geom.Vec2, bool) {
	offset := c.res.Geometry.LightSensorOffset
	sensor := pose.Position.Sub(geom.Polar(offset, pose.Heading))

	nearest := func(v float64) float64 {
		return math.Round(v/c.params.GridSpacing) * c.params.GridSpacing
	}

	// Travelling mostly along x means the line crossed is one of x = k*spacing.
	alongX := math.Abs(math.Cos(pose.Heading)) >= math.Abs(math.Sin(pose.Heading))
	if alongX {
		target := nearest(sensor.X())
		shift := target - sensor.X()
		if math.Abs(shift) > c.params.SnapTolerance {
			fmt.Printf("ODO: Ignoring line at x=%.2f, sensor at %.2f\n", target, sensor.X())
			return geom.Vec2{}, false
		}
		return pose.Position.Add(geom.V(shift, 0)), true
	}
	target := nearest(sensor.Y())
	shift := target - sensor.Y()
	if math.Abs(shift) > c.params.SnapTolerance {
		fmt.Printf("ODO: Ignoring line at y=%.2f, sensor at %.2f\n", target, sensor.Y())
		return geom.Vec2{}, false
	}
	return pose.Position.Add(geom.V(0, shift)), true
}

func (c *GridCorrector) Corrections() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.corrections
}

func (c *GridCorrector) Start() {
	c.task.Start()
}

func (c *GridCorrector) Stop() {
	c.task.Stop()
}
