package hardware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quartercastle/vector"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/screen"
)

const (
	SimMaxRange      = 255
	SimLineIntensity = 0.2
	SimFloor         = 0.6
)

// SimParams describes the simulated body and arena.  The arena is a corner
// with walls along x=0 (for y>=0) and y=0 (for x>=0), and a floor grid of
// dark lines at multiples of GridSpacing.
type SimParams struct {
	LeftWheelRadius   float64
	RightWheelRadius  float64
	Track             float64
	LightSensorOffset float64

	GridSpacing   float64
	GridLineWidth float64

	Start geom.Pose
}

func DefaultSimParams() SimParams {
	return SimParams{
		LeftWheelRadius:   2.1,
		RightWheelRadius:  2.1,
		Track:             16.8,
		LightSensorOffset: 11.75,
		GridSpacing:       30.48,
		GridLineWidth:     2,
		Start:             geom.Pose{Position: geom.V(15, 15), Heading: math.Pi / 2},
	}
}

// Sim is a kinematic differential-drive robot in a walled corner.  It only
// moves when Step is called, so tests are deterministic.
type Sim struct {
	params SimParams

	lock     sync.Mutex
	pos      vector.Vector
	heading  float64
	wheelDeg [2]float64
	speeds   [2]int
	elapsed  time.Duration

	beeps, ups, buzzes int

	display *screen.Display
}

var _ Interface = (*Sim)(nil)

func NewSim(p SimParams) *Sim {
	return &Sim{
		params:  p,
		pos:     vector.Vector{p.Start.Position.X(), p.Start.Position.Y()},
		heading: geom.FixAngle(p.Start.Heading),
		display: screen.NewDisplay(),
	}
}

func (s *Sim) Start(ctx context.Context) error {
	fmt.Println("SIM: Start at", s.TruePose())
	return nil
}

// RunRealtime steps the simulation against the wall clock until ctx is done.
func (s *Sim) RunRealtime(ctx context.Context, step time.Duration) {
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Step(step)
		}
	}
}

func (s *Sim) Shutdown() error {
	s.SetSpeeds(0, 0)
	fmt.Println("SIM: Shutdown at", s.TruePose())
	return nil
}

func (s *Sim) SetSpeeds(left, right int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.speeds = [2]int{left, right}
}

func (s *Sim) Speeds() (left, right int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.speeds[0], s.speeds[1]
}

func (s *Sim) EncoderCounts() (left, right int, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return int(math.Round(s.wheelDeg[0])), int(math.Round(s.wheelDeg[1])), nil
}

// Step advances the body by dt at the commanded wheel speeds.
func (s *Sim) Step(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()

	secs := dt.Seconds()
	dDegL := float64(s.speeds[0]) * secs
	dDegR := float64(s.speeds[1]) * secs
	s.wheelDeg[0] += dDegL
	s.wheelDeg[1] += dDegR

	dL := dDegL * math.Pi * s.params.LeftWheelRadius / 180
	dR := dDegR * math.Pi * s.params.RightWheelRadius / 180
	forward := (dL + dR) / 2
	dTheta := (dR - dL) / s.params.Track

	mid := s.heading + dTheta/2
	dir := vector.Vector{math.Cos(mid), math.Sin(mid)}
	s.pos = s.pos.Add(dir.Scale(forward))
	s.heading = geom.FixAngle(s.heading + dTheta)
	s.elapsed += dt
}

func (s *Sim) Elapsed() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.elapsed
}

func (s *Sim) Now() time.Time {
	return time.Unix(0, 0).Add(s.Elapsed())
}

func (s *Sim) TruePose() geom.Pose {
	s.lock.Lock()
	defer s.lock.Unlock()
	return geom.Pose{Position: geom.V(s.pos[0], s.pos[1]), Heading: s.heading}
}

// Place moves the body without turning the wheels.
func (s *Sim) Place(p geom.Pose) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pos = vector.Vector{p.Position.X(), p.Position.Y()}
	s.heading = geom.FixAngle(p.Heading)
}

// rangeAlong casts a ray from the body centre in direction angle and
// returns the distance to the nearest wall, capped at SimMaxRange.
func (s *Sim) rangeAlong(angle float64) int {
	s.lock.Lock()
	x, y := s.pos[0], s.pos[1]
	s.lock.Unlock()

	best := float64(SimMaxRange)
	c, sn := math.Cos(angle), math.Sin(angle)
	if c < -1e-9 {
		t := -x / c
		if y+t*sn >= 0 && t < best {
			best = t
		}
	}
	if sn < -1e-9 {
		t := -y / sn
		if x+t*c >= 0 && t < best {
			best = t
		}
	}
	return int(best)
}

func (s *Sim) onLine(v float64) bool {
	sp := s.params.GridSpacing
	if sp <= 0 {
		return false
	}
	nearest := math.Round(v/sp) * sp
	return math.Abs(v-nearest) <= s.params.GridLineWidth/2
}

func (s *Sim) intensity() float64 {
	p := s.TruePose()
	dir := vector.Vector{math.Cos(p.Heading), math.Sin(p.Heading)}
	sensor := vector.Vector{p.Position.X(), p.Position.Y()}.Add(dir.Scale(-s.params.LightSensorOffset))
	if s.onLine(sensor[0]) || s.onLine(sensor[1]) {
		return SimLineIntensity
	}
	return SimFloor
}

type simRanger struct {
	s      *Sim
	offset float64
}

func (r simRanger) Sample() ([]int, error) {
	return []int{r.s.rangeAlong(r.s.TruePose().Heading + r.offset)}, nil
}

type simLight struct {
	s *Sim
}

func (l simLight) Sample() ([]float64, error) {
	return []float64{l.s.intensity()}, nil
}

func (s *Sim) FrontDistance() DistanceProvider {
	return simRanger{s: s}
}

// SideDistance looks out of the left-hand side of the body.
func (s *Sim) SideDistance() DistanceProvider {
	return simRanger{s: s, offset: math.Pi / 2}
}

func (s *Sim) Light() IntensityProvider {
	return simLight{s: s}
}

func (s *Sim) Display() *screen.Display {
	return s.display
}

func (s *Sim) Beep() {
	s.lock.Lock()
	s.beeps++
	s.lock.Unlock()
	fmt.Println("SIM: Beep")
}

func (s *Sim) BeepSequenceUp() {
	s.lock.Lock()
	s.ups++
	s.lock.Unlock()
	fmt.Println("SIM: BeepSequenceUp")
}

func (s *Sim) Buzz() {
	s.lock.Lock()
	s.buzzes++
	s.lock.Unlock()
	fmt.Println("SIM: Buzz")
}

// Notifications returns how many of each notification have been given.
func (s *Sim) Notifications() (beeps, ups, buzzes int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.beeps, s.ups, s.buzzes
}

// SimPacer advances a Sim by a fixed step on every yield, then runs the
// registered hooks.  Periodic hooks do not re-enter: a yield made from
// inside one only steps the body and runs the plain hooks.
type SimPacer struct {
	sim   *Sim
	step  time.Duration
	after []func()

	periodic   []*simPeriodic
	inPeriodic bool
}

type simPeriodic struct {
	interval time.Duration
	next     time.Duration
	f        func()
}

func (s *Sim) NewPacer(step time.Duration, after ...func()) *SimPacer {
	return &SimPacer{sim: s, step: step, after: after}
}

// Every runs f each time simulated time passes a multiple of interval.
func (p *SimPacer) Every(interval time.Duration, f func()) {
	p.periodic = append(p.periodic, &simPeriodic{
		interval: interval,
		next:     p.sim.Elapsed() + interval,
		f:        f,
	})
}

func (p *SimPacer) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.sim.Step(p.step)
	for _, f := range p.after {
		f()
	}
	if p.inPeriodic {
		return nil
	}
	now := p.sim.Elapsed()
	p.inPeriodic = true
	defer func() { p.inPeriodic = false }()
	for _, t := range p.periodic {
		if now >= t.next {
			t.next += t.interval
			t.f()
		}
	}
	return nil
}

func (p *SimPacer) Step() time.Duration {
	return p.step
}

func (p *SimPacer) Now() time.Time {
	return p.sim.Now()
}
