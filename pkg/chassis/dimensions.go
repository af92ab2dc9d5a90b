package chassis

import "math"

// Default flagbot geometry, in cm.
const (
	WheelRadiusCM = 2.1
	TrackCM       = 16.8

	// Measured 90° turn divided by commanded 90° turn.
	AngleScale = 90.0 / 90.0

	// Distance from the rotation centre back to the downward light sensor.
	LightSensorOffsetCM = 11.75
)

var (
	WheelCircumCM       = 2 * math.Pi * WheelRadiusCM
	TurningCircleCircCM = math.Pi * TrackCM
)
