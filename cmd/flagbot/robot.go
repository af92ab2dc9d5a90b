package main

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/config"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/filter"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/interrupt"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/navigator"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/odometer"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/robot"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/sensor"
)

const simStep = 5 * time.Millisecond

// Robot is everything a command needs, built once from the config.
type Robot struct {
	Config  config.Config
	HW      hardware.Interface
	Res     *robot.Resources
	Odo     *odometer.Odometer
	Nav     *navigator.Navigator
	Sig     *interrupt.Signal
	Pollers map[string]*sensor.Poller
}

func filterFactory(s config.Sensors) func() filter.Filter {
	switch s.Filter {
	case config.FilterMedian:
		return func() filter.Filter { return filter.NewMedian(s.FilterWidth) }
	case config.FilterAverage:
		return func() filter.Filter { return filter.NewAverage(s.FilterWidth) }
	}
	return nil
}

func (app *App) loadConfig() (config.Config, error) {
	cfg, err := config.Load(app.Config)
	if err != nil {
		return cfg, err
	}
	fmt.Printf("Using config: %#v\n", cfg)
	if err := config.WriteInUse(app.InUse, cfg); err != nil {
		fmt.Println(err)
	}
	return cfg, nil
}

// withRobot brings up the hardware, odometer and navigator, runs f and then
// tears everything down again.  The simulator, if selected, runs alongside
// f in the same group.
func (app *App) withRobot(f func(ctx context.Context, r *Robot) error) error {
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(app.ctx)
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var hw hardware.Interface
	switch {
	case app.Sim:
		sim := hardware.NewSim(hardware.DefaultSimParams())
		g.Go(func() error {
			sim.RunRealtime(ctx, simStep)
			return nil
		})
		hw = sim
	case app.Dummy:
		hw = hardware.NewDummy()
	default:
		hw = hardware.New(cfg.Hardware)
	}
	if err := hw.Start(ctx); err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	defer func() {
		if err := hw.Shutdown(); err != nil {
			fmt.Println("Shutdown failed:", err)
		}
	}()

	clk := clock.New()
	res := robot.FromHardware(hw, cfg.Geometry, clk)

	interval := time.Duration(cfg.Sensors.PollMS) * time.Millisecond
	newFilter := filterFactory(cfg.Sensors)
	front := sensor.NewDistance("front", res.Front, clk, interval, newFilter)
	side := sensor.NewDistance("side", res.Side, clk, interval, newFilter)
	// The light routines work on differences between raw readings.
	light := sensor.NewIntensity("light", res.Light, clk, interval, newFilter)
	light.SetUseFilter(false)
	pollers := map[string]*sensor.Poller{"front": front, "side": side, "light": light}
	for _, p := range pollers {
		p.Start()
		defer p.Stop()
	}
	res.Front = front.Distances()
	res.Side = side.Distances()
	res.Light = light.Intensities()

	odo := odometer.New(res, cfg.Odometer)
	if app.Sim {
		start := hardware.DefaultSimParams().Start
		odo.SetPosition(start.Position)
		odo.SetHeading(start.Heading)
	}
	odo.Start()
	defer odo.Stop()
	res.Display.SetPoseSource(odo.Pose)

	sig := interrupt.New()
	r := &Robot{
		Config:  cfg,
		HW:      hw,
		Res:     res,
		Odo:     odo,
		Nav:     navigator.New(res, odo, sig, cfg.Navigator),
		Sig:     sig,
		Pollers: pollers,
	}

	g.Go(func() error {
		defer stop()
		defer res.Drive.SetSpeeds(0, 0)
		return f(ctx, r)
	})
	return g.Wait()
}
