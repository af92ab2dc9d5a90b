package propeller

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/kr/pty"
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/mux"
)

const (
	PropAddr = 0x42

	RegMotorLeft  = 22
	RegMotorRight = 23

	// Little-endian 16-bit wheel positions in degrees.
	RegEncLeft  = 32
	RegEncRight = 34

	// The board takes int8 duty values; full scale is this many deg/s.
	FullScaleSpeed = 720
)

const (
	defaultBus      = "/dev/i2c-1"
	defaultFirmware = "/flagbot.binary"
)

// Propeller drives the wheels through a Parallax Propeller hat sitting
// behind the I2C mux.  It is the fallback board when no Pico-BLDC is fitted.
type Propeller struct {
	dev      *i2c.Device
	bus      string
	firmware string
	mux      mux.Interface
	muxPort  int
}

func New(m mux.Interface, muxPort int, firmware string) (*Propeller, error) {
	if firmware == "" {
		firmware = defaultFirmware
	}
	dev, err := i2c.Open(&i2c.Devfs{Dev: defaultBus}, PropAddr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open propeller")
	}

	prop := &Propeller{
		dev:      dev,
		bus:      defaultBus,
		firmware: firmware,
		mux:      m,
		muxPort:  muxPort,
	}

	err = prop.Flash()
	if err != nil {
		return nil, err
	}

	return prop, nil
}

// Flash loads the firmware onto the propeller and brings it out of reset.
func (p *Propeller) Flash() error {
	return Flash(p.firmware)
}

func Flash(firmware string) error {
	fmt.Println("Flashing the propeller with", firmware)
	cmd := exec.Command("propman", firmware)
	// propman reports success without booting the propeller unless it
	// has a TTY.
	f, err := pty.Start(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to start propman")
	}
	defer f.Close()
	fmt.Printf("propman output:\n")
	go func() { _, _ = io.Copy(os.Stdout, f) }()
	if err := cmd.Wait(); err != nil {
		return errors.Wrap(err, "propman failed")
	}
	fmt.Println("Flashed the propeller")
	if err := enableResetPin(); err != nil {
		return err
	}
	// Give propeller time to boot...
	time.Sleep(25 * time.Millisecond)
	return nil
}

func enableResetPin() error {
	fmt.Println("Taking control of propeller reset pin")
	export, err := os.OpenFile("/sys/class/gpio/export", os.O_WRONLY, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to open GPIO export")
	}
	defer export.Close()
	_, _ = export.WriteString("17") // Fails if already exported.

	// Reset is active LOW.  Writing "high" to direction makes the pin an
	// output that is already driven high.
	dirn, err := os.OpenFile("/sys/class/gpio/gpio17/direction", os.O_WRONLY, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to open reset pin")
	}
	defer dirn.Close()
	if _, err = dirn.WriteString("high"); err != nil {
		return errors.Wrap(err, "failed to drive propeller reset pin")
	}
	return nil
}

func (p *Propeller) Reset() error {
	fmt.Println("Resetting the propeller")
	value, err := os.OpenFile("/sys/class/gpio/gpio17/value", os.O_WRONLY, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to open reset pin")
	}
	defer value.Close()
	if _, err = value.WriteString("low"); err != nil {
		return errors.Wrap(err, "failed to drive propeller reset pin")
	}
	return nil
}

// ToDuty scales a wheel speed in deg/s to the board's int8 duty value.
func ToDuty(speed int16) int8 {
	d := int(speed) * 127 / FullScaleSpeed
	if d > 127 {
		d = 127
	}
	// -128 is avoided for symmetry when the right motor is negated.
	if d < -127 {
		d = -127
	}
	return int8(d)
}

func (p *Propeller) SetMotorSpeeds(left, right int16) error {
	data := []byte{RegMotorLeft, byte(ToDuty(left)), byte(-ToDuty(right))}
	return p.writeWithRetries(data)
}

func (p *Propeller) RawEncoderCounts() (left, right int16, err error) {
	if err = p.mux.SelectSinglePort(p.muxPort); err != nil {
		return
	}
	var buf [4]byte
	if err = p.dev.ReadReg(RegEncLeft, buf[:]); err != nil {
		return 0, 0, errors.Wrap(err, "failed to read propeller encoders")
	}
	left = int16(binary.LittleEndian.Uint16(buf[0:2]))
	right = -int16(binary.LittleEndian.Uint16(buf[2:4]))
	return
}

func (p *Propeller) Close() error {
	_ = p.SetMotorSpeeds(0, 0)
	return p.dev.Close()
}

func (p *Propeller) writeWithRetries(data []byte) error {
	var err error
	for flashTries := 0; flashTries < 3; flashTries++ {
		for tries := 0; tries < 20; tries++ {
			err = p.mux.SelectSinglePort(p.muxPort)
			if err == nil {
				err = p.dev.Write(data)
			} else {
				fmt.Println("Failed to program mux:", err)
			}
			if err == nil {
				if tries > 0 || flashTries > 0 {
					fmt.Println("Successfully programmed propeller after retries")
				}
				return nil
			}
			fmt.Println("Failed to program propeller:", err)
			time.Sleep(1 * time.Millisecond)
			_ = p.dev.Close()
			dev, err := i2c.Open(&i2c.Devfs{Dev: p.bus}, PropAddr)
			if err != nil {
				continue
			}
			p.dev = dev
		}
		// Kill the propeller in case it's going crazy, then reflash it.
		_ = p.Reset()
		fmt.Println("Failed to program propeller after retries!!!  Rebooting it!!!", err)
		_ = p.Flash()
	}
	panic("Failed to program or reflash the propeller")
}
