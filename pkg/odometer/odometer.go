// Package odometer integrates wheel encoder counts into the robot's pose.
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

type Params struct {
	TickMS int `yaml:"tick-ms"`
}

func DefaultParams() Params {
	return Params{TickMS: 5}
}

// Odometer owns the canonical pose.  Everyone else sees copies.
type Odometer struct {
	res  *robot.Resources
	task *periodic.Task

	lock       sync.Mutex
	pose       geom.Pose
	lastCounts [2]int
}

var (
	_ periodic.Runner = (*Odometer)(nil)
	_ periodic.Ticker = (*Odometer)(nil)
)

// New returns an odometer at the origin facing along +y.  Encoder counts
// are taken as zero at construction.
func New(res *robot.Resources, p Params) *Odometer {
	o := &Odometer{
		res:  res,
		pose: geom.Pose{Position: geom.V(0, 0), Heading: math.Pi / 2},
	}
	o.task = periodic.Schedule(res.Clock, time.Duration(p.TickMS)*time.Millisecond, o)
	return o
}

func (o *Odometer) Tick() {
	o.Update()
}

// Update integrates the wheel motion since the last update.  If the
// encoders can't be read the pose is left alone.
func (o *Odometer) Update() {
	l, r, err := o.res.Encoders.EncoderCounts()
	if err != nil {
		return
	}
	g := o.res.Geometry

	o.lock.Lock()
	defer o.lock.Unlock()

	dL := float64(l-o.lastCounts[0]) * math.Pi * g.LeftWheelRadius / 180
	dR := float64(r-o.lastCounts[1]) * math.Pi * g.RightWheelRadius / 180
	o.lastCounts = [2]int{l, r}

	wheels := geom.V(dL, dR)
	forward := wheels.ComponentSum() / 2
	dHeading := -wheels.ComponentDiff() / g.Track * g.AngleScale

	o.pose.Heading = geom.FixAngle(o.pose.Heading + dHeading)
	o.pose.Position = o.pose.Position.Add(geom.Polar(forward, o.pose.Heading))
}

func (o *Odometer) Pose() geom.Pose {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.pose
}

func (o *Odometer) Position() geom.Vec2 {
	return o.Pose().Position
}

func (o *Odometer) Heading() float64 {
	return o.Pose().Heading
}

func (o *Odometer) SetPosition(p geom.Vec2) {
	o.lock.Lock()
	defer o.lock.Unlock()
	fmt.Printf("ODO: Position %v -> %v\n", o.pose.Position, p)
	o.pose.Position = p
}

// SetHeading overwrites the heading, normalising it into [0, 2π).
func (o *Odometer) SetHeading(h float64) {
	o.lock.Lock()
	defer o.lock.Unlock()
	h = geom.FixAngle(h)
	fmt.Printf("ODO: Heading %.1f° -> %.1f°\n", geom.Degrees(o.pose.Heading), geom.Degrees(h))
	o.pose.Heading = h
}

func (o *Odometer) Start() {
	o.task.Start()
}

func (o *Odometer) Stop() {
	o.task.Stop()
}
