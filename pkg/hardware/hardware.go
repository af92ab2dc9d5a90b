package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/lightsensor"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/mux"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/picobldc"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/propeller"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/rangefinder"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/screen"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/sound"
)

const (
	BoardPico      = "pico"
	BoardPropeller = "propeller"
)

type Config struct {
	I2CBus            string `yaml:"i2c-bus"`
	Board             string `yaml:"board"`
	MuxPort           int    `yaml:"mux-port"`
	PropellerFirmware string `yaml:"propeller-firmware"`
	RangefinderDevice string `yaml:"rangefinder-device"`
	LightSPIPort      string `yaml:"light-spi-port"`
	LightChannel      int    `yaml:"light-channel"`
	Framebuffer       string `yaml:"framebuffer"`
}

func DefaultConfig() Config {
	return Config{
		I2CBus:            "/dev/i2c-1",
		Board:             BoardPico,
		MuxPort:           mux.BusPropeller,
		RangefinderDevice: rangefinder.DefaultDevice,
		LightSPIPort:      lightsensor.DefaultPort,
		Framebuffer:       "/dev/fb1",
	}
}

// Hardware is the real robot: motor board on I2C, ultrasonic rangefinders on
// a UART, a light sensor on SPI, a speaker and a small screen.
type Hardware struct {
	config Config

	i2c     *I2CController
	rf      *rangefinder.Rangefinder
	player  *sound.Player
	display *screen.Display

	lightLock sync.Mutex
	light     *lightsensor.MCP3008

	mux mux.Interface
}

var _ Interface = (*Hardware)(nil)

func New(config Config) *Hardware {
	h := &Hardware{
		config:  config,
		rf:      rangefinder.New(config.RangefinderDevice),
		player:  sound.New(),
		display: screen.NewDisplay(),
	}
	h.i2c = NewI2CController(clock.New(), h.openBoard)
	return h
}

func (h *Hardware) openBoard() (MotorBoard, error) {
	switch h.config.Board {
	case BoardPico, "":
		return picobldc.New(h.config.I2CBus)
	case BoardPropeller:
		if h.mux == nil {
			m, err := mux.New(h.config.I2CBus)
			if err != nil {
				return nil, err
			}
			h.mux = m
		}
		if err := h.mux.SelectSinglePort(h.config.MuxPort); err != nil {
			return nil, errors.Wrap(err, "failed to select propeller mux port")
		}
		return propeller.New(h.mux, h.config.MuxPort, h.config.PropellerFirmware)
	}
	return nil, errors.Errorf("unknown motor board %q", h.config.Board)
}

func (h *Hardware) Start(ctx context.Context) error {
	light, err := lightsensor.NewSPI(h.config.LightSPIPort, h.config.LightChannel)
	if err != nil {
		fmt.Println("HW: Failed to open light sensor; readings will be unavailable:", err)
	} else {
		h.lightLock.Lock()
		h.light = light
		h.lightLock.Unlock()
	}

	go h.display.LoopUpdatingScreen(ctx, h.config.Framebuffer)
	go h.rf.LoopReadingReports(ctx)

	var initDone sync.WaitGroup
	initDone.Add(1)
	go h.i2c.Loop(ctx, &initDone)
	initDone.Wait()
	return nil
}

func (h *Hardware) SetSpeeds(left, right int) {
	h.i2c.SetSpeeds(left, right)
}

func (h *Hardware) EncoderCounts() (left, right int, err error) {
	return h.i2c.EncoderCounts()
}

func (h *Hardware) FrontDistance() DistanceProvider {
	return h.rf.Front()
}

func (h *Hardware) SideDistance() DistanceProvider {
	return h.rf.Side()
}

type hwLight struct {
	h *Hardware
}

func (l hwLight) Sample() ([]float64, error) {
	l.h.lightLock.Lock()
	s := l.h.light
	l.h.lightLock.Unlock()
	if s == nil {
		return nil, ErrNotReady
	}
	return s.Sample()
}

func (h *Hardware) Light() IntensityProvider {
	return hwLight{h: h}
}

func (h *Hardware) Display() *screen.Display {
	return h.display
}

func (h *Hardware) Beep() {
	h.player.Beep()
}

func (h *Hardware) BeepSequenceUp() {
	h.player.BeepSequenceUp()
}

func (h *Hardware) Buzz() {
	h.player.Buzz()
}

func (h *Hardware) PlaySound(path string) {
	h.player.Play(path)
}

// Shutdown stops the motors and releases the devices not owned by the
// I2C loop.  The loop itself exits when the Start context is cancelled.
func (h *Hardware) Shutdown() error {
	h.i2c.SetSpeeds(0, 0)
	h.player.Close()
	var err error
	if h.mux != nil {
		err = multierr.Append(err, h.mux.Close())
	}
	return err
}
