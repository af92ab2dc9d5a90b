// Package config loads the robot configuration: compiled defaults,
// overlaid with /cfg/flagbot.yaml if present.  The effective configuration
// is written back out so it is obvious what a run actually used.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/avoider"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/localization"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/navigator"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/odometer"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/wallfollower"
)

const (
	DefaultPath = "/cfg/flagbot.yaml"
	InUsePath   = "/cfg/flagbot-in-use.yaml"
)

const (
	FilterNone    = "none"
	FilterMedian  = "median"
	FilterAverage = "average"
)

type Sensors struct {
	PollMS int `yaml:"poll-ms"`
	// Filter is one of none, median or average.
	Filter      string `yaml:"filter"`
	FilterWidth int    `yaml:"filter-width"`
}

type Waypoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (w Waypoint) Vec() geom.Vec2 {
	return geom.V(w.X, w.Y)
}

type Config struct {
	Hardware   hardware.Config           `yaml:"hardware"`
	Geometry   robot.Geometry            `yaml:"geometry"`
	Sensors    Sensors                   `yaml:"sensors"`
	Odometer   odometer.Params           `yaml:"odometer"`
	Correction odometer.CorrectionParams `yaml:"grid-correction"`
	Navigator  navigator.Params          `yaml:"navigator"`
	// Follower is the standalone wall follower; the avoider has its own.
	Follower   wallfollower.Params           `yaml:"wall-follower"`
	Avoider    avoider.Params                `yaml:"avoider"`
	Ultrasonic localization.UltrasonicParams `yaml:"ultrasonic"`
	Light      localization.LightParams      `yaml:"light"`

	Waypoints []Waypoint `yaml:"waypoints"`
}

func Default() Config {
	return Config{
		Hardware: hardware.DefaultConfig(),
		Geometry: robot.DefaultGeometry(),
		Sensors: Sensors{
			PollMS:      20,
			Filter:      FilterMedian,
			FilterWidth: 5,
		},
		Odometer:   odometer.DefaultParams(),
		Correction: odometer.DefaultCorrectionParams(),
		Navigator:  navigator.DefaultParams(),
		Follower:   wallfollower.DefaultParams(),
		Avoider:    avoider.DefaultParams(),
		Ultrasonic: localization.DefaultUltrasonicParams(),
		Light:      localization.DefaultLightParams(),
		Waypoints: []Waypoint{
			{X: 60, Y: 30},
			{X: 30, Y: 30},
			{X: 30, Y: 60},
			{X: 60, Y: 0},
		},
	}
}

// Load overlays the file at path onto the defaults.  A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("No config at", path, "using defaults")
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Default(), errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that would otherwise hang or panic a
// component.
func (c Config) Validate() error {
	for name, v := range map[string]int{
		"odometer.tick-ms":      c.Odometer.TickMS,
		"grid-correction.tick":  c.Correction.TickMS,
		"navigator.poll-ms":     c.Navigator.PollMS,
		"wall-follower.tick-ms": c.Follower.TickMS,
		"avoider.tick-ms":       c.Avoider.TickMS,
		"ultrasonic.poll-ms":    c.Ultrasonic.PollMS,
		"light.poll-ms":         c.Light.PollMS,
		"sensors.poll-ms":       c.Sensors.PollMS,
	} {
		if v <= 0 {
			return errors.Errorf("%s must be positive, got %d", name, v)
		}
	}
	switch c.Sensors.Filter {
	case FilterNone, FilterMedian, FilterAverage:
	default:
		return errors.Errorf("unknown sensor filter %q", c.Sensors.Filter)
	}
	if c.Sensors.Filter != FilterNone && c.Sensors.FilterWidth <= 0 {
		return errors.Errorf("sensors.filter-width must be positive, got %d", c.Sensors.FilterWidth)
	}
	if c.Geometry.Track <= 0 || c.Geometry.LeftWheelRadius <= 0 || c.Geometry.RightWheelRadius <= 0 {
		return errors.New("geometry must have a positive track and wheel radii")
	}
	return nil
}

// WriteInUse records the effective configuration at path.
func WriteInUse(path string, c Config) error {
	raw, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, raw, 0666); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
