package hardware

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/screen"
)

// ErrNotReady is returned by sensors and encoders that have not produced a
// first reading yet.  Callers treat it like any other transient failure.
var ErrNotReady = errors.New("no reading available yet")

// Drive is the differential-drive actuator.  Speeds are wheel speeds in
// degrees/second; the sign selects direction.  Safe to call every tick.
type Drive interface {
	SetSpeeds(left, right int)
}

// EncoderSource reports cumulative wheel rotation in degrees since the
// drive was initialised.
type EncoderSource interface {
	EncoderCounts() (left, right int, err error)
}

// DistanceProvider returns a fresh copy of the latest distance readings in
// cm, saturated at the sensor's ceiling when nothing is detected.
type DistanceProvider interface {
	Sample() ([]int, error)
}

// IntensityProvider returns a fresh copy of the latest reflectance
// readings, normalised to [0, 1].
type IntensityProvider interface {
	Sample() ([]float64, error)
}

// Notifier gives fire-and-forget feedback when a manoeuvre completes.
type Notifier interface {
	Beep()
	BeepSequenceUp()
	Buzz()
}

// MotorBoard is a two-wheel motor controller with wrapping 16-bit encoder
// registers.
type MotorBoard interface {
	SetMotorSpeeds(left, right int16) error
	RawEncoderCounts() (left, right int16, err error)
	Close() error
}

type Interface interface {
	Drive
	EncoderSource
	Notifier

	Start(ctx context.Context) error
	Shutdown() error

	FrontDistance() DistanceProvider
	SideDistance() DistanceProvider
	Light() IntensityProvider
	Display() *screen.Display
}
