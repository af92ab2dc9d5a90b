// Package avoider watches the front rangefinder and, when something gets
// too close, takes over from navigation: it turns away and follows the
// obstacle round until the robot has come back round by enough to resume.
package avoider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/interrupt"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/periodic"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/wallfollower"
)

type State int

const (
	Idle State = iota
	Avoiding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Avoiding:
		return "AVOIDING"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Params struct {
	ThresholdCM        int     `yaml:"threshold-cm"`
	TickMS             int     `yaml:"tick-ms"`
	PreRotateDelayMS   int     `yaml:"pre-rotate-delay-ms"`
	RecoverySpeed      int     `yaml:"recovery-speed"`
	RecoveryAngleDeg   float64 `yaml:"recovery-angle-deg"`
	RecoveryTimeoutMS  int     `yaml:"recovery-timeout-ms"`
	CompletionAngleDeg float64 `yaml:"completion-angle-deg"`
	SettlePollMS       int     `yaml:"settle-poll-ms"`
	CompletionBeeps    int     `yaml:"completion-beeps"`

	Follower wallfollower.Params `yaml:"follower"`
}

func DefaultParams() Params {
	return Params{
		ThresholdCM:        14,
		TickMS:             50,
		PreRotateDelayMS:   1000,
		RecoverySpeed:      150,
		RecoveryAngleDeg:   45,
		RecoveryTimeoutMS:  3000,
		CompletionAngleDeg: 45,
		SettlePollMS:       1000,
		CompletionBeeps:    3,
		Follower:           wallfollower.DefaultParams(),
	}
}

type PoseSource interface {
	Pose() geom.Pose
}

type Avoider struct {
	res      *robot.Resources
	odo      PoseSource
	sig      *interrupt.Signal
	front    hardware.DistanceProvider
	follower *wallfollower.WallFollower
	params   Params
	task     *periodic.Task
	scope    periodic.Scope

	lock        sync.Mutex
	running     bool
	state       State
	prevHeading float64
	cumulative  float64
	triggers    int
}

var (
	_ periodic.Runner = (*Avoider)(nil)
	_ periodic.Ticker = (*Avoider)(nil)
)

// New builds an avoider that reads res.Front and follows obstacles with its
// own wall follower on res.Side.
func New(res *robot.Resources, odo PoseSource, sig *interrupt.Signal, p Params) *Avoider {
	a := &Avoider{
		res:      res,
		odo:      odo,
		sig:      sig,
		front:    res.Front,
		follower: wallfollower.New(res, res.Side, p.Follower),
		params:   p,
	}
	a.task = periodic.Schedule(res.Clock, time.Duration(p.TickMS)*time.Millisecond, a)
	return a
}

func (a *Avoider) Follower() *wallfollower.WallFollower {
	return a.follower
}

// Launch starts the periodic ticks of the avoider and its follower.
func (a *Avoider) Launch() {
	a.scope.Renew()
	a.follower.Launch()
	a.task.Start()
}

// Shutdown abandons any manoeuvre in progress, stops both ticks and hands
// control back by clearing the interrupt.
func (a *Avoider) Shutdown() {
	a.scope.Cancel()
	a.task.Stop()
	a.follower.Stop()
	a.follower.Shutdown()

	a.lock.Lock()
	avoiding := a.state == Avoiding
	a.state = Idle
	a.lock.Unlock()
	if avoiding {
		fmt.Println("OA: Shut down while avoiding")
		a.res.Drive.SetSpeeds(0, 0)
		a.sig.Set(false)
	}
}

func (a *Avoider) Start() {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.running = true
}

func (a *Avoider) Stop() {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.running = false
}

func (a *Avoider) State() State {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.state
}

// Cumulative is the heading change, in radians, since the last recovery
// turn.
func (a *Avoider) Cumulative() float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.cumulative
}

// Triggers counts how many times an obstacle has been seen.
func (a *Avoider) Triggers() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.triggers
}

func (a *Avoider) isRunning() bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.running
}

func (a *Avoider) obstacleAhead() bool {
	s, err := a.front.Sample()
	if err != nil || len(s) == 0 {
		return false
	}
	return s[0] < a.params.ThresholdCM
}

// turnAway spins clockwise on the spot by the recovery angle.
func (a *Avoider) turnAway(ctx context.Context) {
	deg := a.res.Geometry.ConvertAngle(a.params.RecoveryAngleDeg)
	limit := time.Duration(a.params.RecoveryTimeoutMS) * time.Millisecond
	if err := a.res.RotateWheelsWithin(ctx, deg, -deg, a.params.RecoverySpeed, limit); err != nil {
		fmt.Println("OA: Recovery turn failed:", err)
	}
}

// stopFollower stops the follower and waits for its last tick to finish
// with the wheels.
func (a *Avoider) stopFollower(ctx context.Context, every time.Duration) {
	a.follower.Stop()
	y := a.res.Yielder(every)
	for a.follower.IsNavigating() {
		if err := y.Yield(ctx); err != nil {
			return
		}
	}
}

func (a *Avoider) resetCounter() {
	h := a.odo.Pose().Heading
	a.lock.Lock()
	a.cumulative = 0
	a.prevHeading = h
	a.lock.Unlock()
}

func (a *Avoider) Tick() {
	if !a.isRunning() {
		return
	}
	ctx := a.scope.Context()

	if a.obstacleAhead() {
		a.lock.Lock()
		a.triggers++
		first := a.state == Idle
		a.state = Avoiding
		a.lock.Unlock()

		if first {
			fmt.Println("OA: Obstacle detected, taking over")
			a.sig.Set(true)
			a.res.Drive.SetSpeeds(0, 0)
			if err := a.res.Sleep(ctx, time.Duration(a.params.PreRotateDelayMS)*time.Millisecond); err != nil {
				return
			}
		} else {
			fmt.Println("OA: Obstacle still ahead, turning again")
			a.stopFollower(ctx, time.Duration(a.params.Follower.TickMS)*time.Millisecond)
		}
		a.turnAway(ctx)
		if ctx.Err() != nil {
			return
		}
		a.res.Drive.SetSpeeds(0, 0)
		a.follower.Start()
		a.resetCounter()
	}

	if a.State() != Avoiding {
		return
	}

	cur := a.odo.Pose().Heading
	a.lock.Lock()
	a.cumulative += geom.UnwrapDelta(a.prevHeading, cur)
	a.prevHeading = cur
	done := a.cumulative > geom.Radians(a.params.CompletionAngleDeg)
	a.lock.Unlock()
	if !done {
		return
	}

	fmt.Println("OA: Back on course")
	a.stopFollower(ctx, time.Duration(a.params.SettlePollMS)*time.Millisecond)
	if ctx.Err() != nil {
		return
	}
	a.res.Drive.SetSpeeds(0, 0)
	for i := 0; i < a.params.CompletionBeeps; i++ {
		a.res.Notifier.BeepSequenceUp()
	}
	a.sig.Set(false)

	a.lock.Lock()
	a.state = Idle
	a.lock.Unlock()
}
