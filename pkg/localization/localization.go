// Package localization holds the one-shot calibration routines run at the
// start of a round: the ultrasonic routines fix the heading from the corner
// walls and the light routine fixes the position from a floor grid
// intersection.
//
// None of the routines time out.  If an expected edge never shows up they
// spin until the context is cancelled.
package localization

import (
	"context"
	"time"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
)

// Navigator is the part of the motion controller the routines drive.
type Navigator interface {
	SetRotationSpeed(v int)
	TurnTo(ctx context.Context, angle float64, stop bool) error
	TravelTo(ctx context.Context, target geom.Vec2, stop bool) error
}

// PoseEstimator is the odometer, which the routines correct.
type PoseEstimator interface {
	Pose() geom.Pose
	SetPosition(p geom.Vec2)
	SetHeading(h float64)
}

// debounce reports whether a fixed window has passed since it was last
// reset.
type debounce struct {
	now    func() time.Time
	window time.Duration
	since  time.Time
}

func newDebounce(now func() time.Time, window time.Duration) *debounce {
	d := &debounce{now: now, window: window}
	d.Reset()
	return d
}

func (d *debounce) Reset() {
	d.since = d.now()
}

func (d *debounce) Settled() bool {
	return d.now().Sub(d.since) > d.window
}
