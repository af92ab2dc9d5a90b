// Package wallfollower holds the robot at a fixed distance from a wall on
// its left using a proportional controller.
package wallfollower

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/periodic"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
)

type Params struct {
	BandCenter      int     `yaml:"band-center"`
	BandWidth       int     `yaml:"band-width"`
	Gain            float64 `yaml:"gain"`
	MaxCorrection   int     `yaml:"max-correction"`
	MaxDistance     int     `yaml:"max-distance"`
	StraightSpeed   int     `yaml:"straight-speed"`
	TickMS          int     `yaml:"tick-ms"`
	CriticalPauseMS int     `yaml:"critical-pause-ms"`
}

func DefaultParams() Params {
	return Params{
		BandCenter:      15,
		BandWidth:       3,
		Gain:            9.5,
		MaxCorrection:   60,
		MaxDistance:     250,
		StraightSpeed:   200,
		TickMS:          20,
		CriticalPauseMS: 750,
	}
}

// WallFollower ticks continuously once launched but only drives while
// started.
type WallFollower struct {
	res    *robot.Resources
	sensor hardware.DistanceProvider
	params Params
	task   *periodic.Task
	scope  periodic.Scope

	lock         sync.Mutex
	running      bool
	ticking      bool
	distance     int
	haveDistance bool
}

var (
	_ periodic.Runner = (*WallFollower)(nil)
	_ periodic.Ticker = (*WallFollower)(nil)
)

func New(res *robot.Resources, sensor hardware.DistanceProvider, p Params) *WallFollower {
	w := &WallFollower{
		res:    res,
		sensor: sensor,
		params: p,
	}
	w.task = periodic.Schedule(res.Clock, time.Duration(p.TickMS)*time.Millisecond, w)
	return w
}

// Launch starts the periodic tick.  The controller stays idle until Start.
func (w *WallFollower) Launch() {
	w.scope.Renew()
	w.task.Start()
}

// Shutdown cuts short any critical pause and stops the periodic tick.
func (w *WallFollower) Shutdown() {
	w.scope.Cancel()
	w.task.Stop()
}

func (w *WallFollower) Start() {
	w.lock.Lock()
	defer w.lock.Unlock()
	if !w.running {
		fmt.Println("WF: Following")
	}
	w.running = true
}

func (w *WallFollower) Stop() {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.running {
		fmt.Println("WF: Stopped")
	}
	w.running = false
}

// IsNavigating is true while started, and after Stop until any tick that
// was already driving has finished.
func (w *WallFollower) IsNavigating() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.running || w.ticking
}

// Correction is the differential speed applied for a distance error.
func (w *WallFollower) Correction(distError int) int {
	c := int(w.params.Gain * math.Abs(float64(distError)))
	if c > w.params.MaxCorrection {
		c = w.params.MaxCorrection
	}
	return c
}

// Speeds returns the wheel speeds for a distance reading, and whether the
// reading is close enough to need the critical pause.
func (w *WallFollower) Speeds(distance int) (left, right int, critical bool) {
	p := w.params
	distError := 0
	if distance <= p.MaxDistance {
		distError = p.BandCenter - distance
	}

	switch {
	case distance < 4*p.BandWidth:
		// Nearly touching: spin away.
		return p.StraightSpeed / 2, -p.StraightSpeed / 2, true
	case abs(distError) <= p.BandWidth:
		return p.StraightSpeed, p.StraightSpeed, false
	case distError > 0:
		diff := w.Correction(distError)
		return p.StraightSpeed + diff, p.StraightSpeed - diff, false
	default:
		diff := w.Correction(distError)
		return p.StraightSpeed - diff, p.StraightSpeed + diff, false
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (w *WallFollower) Tick() {
	w.lock.Lock()
	if !w.running {
		w.lock.Unlock()
		return
	}
	w.ticking = true
	w.lock.Unlock()
	defer func() {
		w.lock.Lock()
		w.ticking = false
		w.lock.Unlock()
	}()

	if s, err := w.sensor.Sample(); err == nil && len(s) > 0 {
		w.lock.Lock()
		w.distance = s[0]
		w.haveDistance = true
		w.lock.Unlock()
	}

	w.lock.Lock()
	distance, ok := w.distance, w.haveDistance
	w.lock.Unlock()
	if !ok {
		return
	}

	left, right, critical := w.Speeds(distance)
	w.res.Drive.SetSpeeds(left, right)
	if critical {
		_ = w.res.Sleep(w.scope.Context(), time.Duration(w.params.CriticalPauseMS)*time.Millisecond)
	}
}
