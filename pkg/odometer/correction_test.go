package odometer

import (
	"math"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
)

type scriptedLight struct {
	values []float64
}

func (s *scriptedLight) Sample() ([]float64, error) {
	v := s.values[0]
	if len(s.values) > 1 {
		s.values = s.values[1:]
	}
	return []float64{v}, nil
}

func newTestCorrector(light *scriptedLight) (*GridCorrector, *Odometer) {
	res := &robot.Resources{
		Encoders: &fakeEncoders{},
		Light:    light,
		Geometry: robot.DefaultGeometry(),
		Clock:    clock.NewMock(),
	}
	odo := New(res, DefaultParams())
	return NewGridCorrector(res, odo, DefaultCorrectionParams()), odo
}

func TestGridCorrectionAlongX(t *testing.T) {
	light := &scriptedLight{values: []float64{0.6, 0.2, 0.2, 0.6}}
	c, odo := newTestCorrector(light)
	odo.SetHeading(0)
	// Sensor trails by 11.75, so it is 1cm past the x=30.48 line.
	odo.SetPosition(geom.V(30.48+11.75+1, 10))

	for i := 0; i < 4; i++ {
		c.Tick()
	}
	assert.Equal(t, 1, c.Corrections())
	assert.InDelta(t, 30.48+11.75, odo.Position().X(), 1e-9)
	assert.Equal(t, 10.0, odo.Position().Y())
}

func TestGridCorrectionAlongY(t *testing.T) {
	light := &scriptedLight{values: []float64{0.2, 0.6}}
	c, odo := newTestCorrector(light)
	odo.SetHeading(3 * math.Pi / 2)
	// Facing -y the sensor is ahead in +y; put it 2cm short of y=60.96.
	odo.SetPosition(geom.V(5, 60.96-11.75-2))

	c.Tick()
	c.Tick()
	assert.Equal(t, 1, c.Corrections())
	assert.Equal(t, 5.0, odo.Position().X())
	assert.InDelta(t, 60.96-11.75, odo.Position().Y(), 1e-9)
}

func TestGridCorrectionIgnoresEnteringEdgeAndFarLines(t *testing.T) {
	light := &scriptedLight{values: []float64{0.6, 0.2, 0.6}}
	c, odo := newTestCorrector(light)
	odo.SetHeading(0)
	odo.SetPosition(geom.V(30.48+11.75+12, 10))

	c.Tick()
	c.Tick() // Entering the line.
	assert.Equal(t, 0, c.Corrections())
	c.Tick() // Leaving, but 12cm from the nearest line.
	assert.Equal(t, 0, c.Corrections())
	assert.Equal(t, 30.48+11.75+12, odo.Position().X())
}
