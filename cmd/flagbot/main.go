package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/avoider"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/config"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/localization"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/navigator"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/odometer"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/propeller"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/sensor"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/wallfollower"
)

type Globals struct {
	Config string `help:"Config file, overlaid on the defaults." default:"/cfg/flagbot.yaml" type:"path"`
	InUse  string `help:"Where to record the config actually used." default:"/cfg/flagbot-in-use.yaml"`
	Sim    bool   `help:"Drive the built-in simulator instead of the robot." xor:"backend"`
	Dummy  bool   `help:"Use logging dummy hardware." xor:"backend"`
}

// App is what every command runs with: the parsed global flags and the
// process-wide context.
type App struct {
	*Globals
	ctx context.Context
}

var CLI struct {
	Globals

	Navigate   NavigateCmd   `cmd:"" help:"Follow a path of waypoints."`
	Localize   LocalizeCmd   `cmd:"" help:"Run a localization routine."`
	Wallfollow WallfollowCmd `cmd:"" help:"Follow the wall on the left for a while."`
	Collect    CollectCmd    `cmd:"" help:"Record sensor samples to a CSV file."`
	Flash      FlashCmd      `cmd:"" help:"Flash the propeller firmware."`
}

type NavigateCmd struct {
	Points  []string `arg:"" optional:"" name:"point" help:"Waypoints as x,y.  Defaults to the configured path."`
	Avoid   bool     `help:"Go round obstacles in the way."`
	Correct bool     `help:"Correct the odometer on floor grid lines."`
	Forward int      `help:"Override the forward speed (deg/s)."`
}

func parsePoint(s string) (geom.Vec2, error) {
	var x, y float64
	if _, err := fmt.Sscanf(s, "%g,%g", &x, &y); err != nil {
		return geom.Vec2{}, errors.Wrapf(err, "bad waypoint %q", s)
	}
	return geom.V(x, y), nil
}

func (n *NavigateCmd) Run(app *App) error {
	return app.withRobot(func(ctx context.Context, r *Robot) error {
		path := navigator.NewPath()
		for _, s := range n.Points {
			p, err := parsePoint(s)
			if err != nil {
				return err
			}
			path.Push(p)
		}
		if len(n.Points) == 0 {
			for _, w := range r.Config.Waypoints {
				path.Push(w.Vec())
			}
		}
		if n.Forward != 0 {
			r.Nav.Tunables.Find("forward-speed").Set(n.Forward)
		}

		if n.Correct {
			c := odometer.NewGridCorrector(r.Res, r.Odo, r.Config.Correction)
			c.Start()
			defer func() {
				c.Stop()
				fmt.Println("NAV: Grid corrections applied:", c.Corrections())
			}()
		}
		if n.Avoid {
			a := avoider.New(r.Res, r.Odo, r.Sig, r.Config.Avoider)
			a.Launch()
			a.Start()
			defer a.Shutdown()
		}

		r.Res.Display.SetMode("Navigate")
		wait := r.Res.Yielder(50 * time.Millisecond)
		for path.Len() > 0 {
			if err := navigator.FollowPath(ctx, r.Nav, path, r.Sig); err != nil {
				return err
			}
			if path.Len() == 0 {
				break
			}
			fmt.Println("NAV: Interrupted with", path.Len(), "waypoints left, waiting to resume")
			for r.Sig.Get() {
				if err := wait.Yield(ctx); err != nil {
					return err
				}
			}
		}
		r.Res.Drive.SetSpeeds(0, 0)
		r.Res.Notifier.Beep()
		fmt.Println("NAV: Path complete at", r.Odo.Pose())
		return nil
	})
}

type LocalizeCmd struct {
	Mode string `arg:"" optional:"" enum:"us-falling,us-rising,light,full" default:"full" help:"Routine to run: us-falling, us-rising, light or full."`
}

func (l *LocalizeCmd) Run(app *App) error {
	return app.withRobot(func(ctx context.Context, r *Robot) error {
		r.Res.Display.SetMode("Localize " + l.Mode)
		if l.Mode != "light" {
			edge := localization.FallingEdge
			if l.Mode == "us-rising" {
				edge = localization.RisingEdge
			}
			u := localization.NewUltrasonic(r.Res, r.Odo, r.Res.Front, edge, r.Config.Ultrasonic)
			if _, err := u.Localize(ctx, r.Nav); err != nil {
				return err
			}
		}
		if l.Mode == "light" || l.Mode == "full" {
			lg := localization.NewLightGrid(r.Res, r.Odo, r.Res.Light, r.Config.Light)
			if _, err := lg.Localize(ctx, r.Nav); err != nil {
				return err
			}
		}
		r.Res.Notifier.BeepSequenceUp()
		fmt.Println("Localized at", r.Odo.Pose())
		return nil
	})
}

type WallfollowCmd struct {
	For time.Duration `help:"How long to follow for." default:"30s"`
}

func (w *WallfollowCmd) Run(app *App) error {
	return app.withRobot(func(ctx context.Context, r *Robot) error {
		r.Res.Display.SetMode("Wall follow")
		wf := wallfollower.New(r.Res, r.Res.Side, r.Config.Follower)
		wf.Launch()
		defer wf.Shutdown()
		wf.Start()
		defer wf.Stop()

		err := r.Res.Sleep(ctx, w.For)
		r.Res.Drive.SetSpeeds(0, 0)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

type CollectCmd struct {
	Sensor   string        `arg:"" enum:"front,side,light" help:"Sensor to sample: front, side or light."`
	Samples  int           `help:"Number of samples." default:"200"`
	Interval time.Duration `help:"Time between samples." default:"50ms"`
	Dir      string        `help:"Directory for the CSV file." default:"." type:"path"`
	Raw      bool          `help:"Record unfiltered readings."`
}

func (c *CollectCmd) Run(app *App) error {
	return app.withRobot(func(ctx context.Context, r *Robot) error {
		p := r.Pollers[c.Sensor]
		if c.Raw {
			p.SetUseFilter(false)
		}
		_, err := sensor.Collect(ctx, r.Res.Yielder(c.Interval), c.Dir, c.Sensor, p.Sample, c.Samples, r.Res.Now().UnixMilli())
		return err
	})
}

type FlashCmd struct {
	Firmware string `help:"Firmware image; defaults to the configured one." type:"path"`
}

func (f *FlashCmd) Run(app *App) error {
	fw := f.Firmware
	if fw == "" {
		cfg, err := config.Load(app.Config)
		if err != nil {
			return err
		}
		fw = cfg.Hardware.PropellerFirmware
	}
	if fw == "" {
		return errors.New("no propeller firmware configured")
	}
	return propeller.Flash(fw)
}

func main() {
	fmt.Print("---- Flagbot ----\n\n")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	kctx := kong.Parse(&CLI,
		kong.Name("flagbot"),
		kong.Description("Differential-drive flag robot controller."),
		kong.UsageOnError(),
	)

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancel()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()

	err := kctx.Run(&App{Globals: &CLI.Globals, ctx: ctx})
	kctx.FatalIfErrorf(err)
}
