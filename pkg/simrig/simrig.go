// Package simrig wires the simulator, resources and odometer together so
// closed-loop behaviour can be exercised deterministically in tests.
package simrig

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/odometer"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
)

const Step = 5 * time.Millisecond

type Rig struct {
	Sim      *hardware.Sim
	Pacer    *hardware.SimPacer
	Res      *robot.Resources
	Odometer *odometer.Odometer
}

// New builds a rig whose body starts at start.  The odometer starts with
// the same pose, so any later disagreement is integration error.
func New(start geom.Pose) *Rig {
	p := hardware.DefaultSimParams()
	p.Start = start
	return NewWithParams(p)
}

func NewWithParams(p hardware.SimParams) *Rig {
	sim := hardware.NewSim(p)
	res := robot.FromHardware(sim, robot.Geometry{
		LeftWheelRadius:   p.LeftWheelRadius,
		RightWheelRadius:  p.RightWheelRadius,
		Track:             p.Track,
		AngleScale:        1,
		LightSensorOffset: p.LightSensorOffset,
	}, clock.NewMock())
	odo := odometer.New(res, odometer.DefaultParams())
	odo.SetPosition(p.Start.Position)
	odo.SetHeading(p.Start.Heading)

	pacer := sim.NewPacer(Step, odo.Update)
	res.Pacer = pacer
	return &Rig{
		Sim:      sim,
		Pacer:    pacer,
		Res:      res,
		Odometer: odo,
	}
}

// PoseError is the distance between the estimated and true positions.
func (r *Rig) PoseError() float64 {
	return r.Odometer.Position().Sub(r.Sim.TruePose().Position).Norm()
}
