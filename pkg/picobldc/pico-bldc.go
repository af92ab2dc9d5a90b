package picobldc

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	PicoAddr = 0x42
)

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegWatchdogTimeout
	RegFaultCount

	RegMotLeftV
	RegMotRightV

	RegMotLeftCalib
	RegMotRightCalib

	// Wrapping wheel positions, LSB = 1 degree.
	RegEncLeft
	RegEncRight

	RegBattV // LSB=4mV
	RegTemperature // LSB = 0.01C
)

const (
	BattVLSB       = 0.004
	TemperatureLSB = 0.01
)

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlDoCalib
	RegCtrlReset
	RegCtrlWatchdogEnable
)

type StatusFlag uint16

const (
	RegStatusFault StatusFlag = 1 << iota
	RegStatusCalibDone
	RegStatusWatchdogExpired
)

type Interface interface {
	SetMotorSpeeds(left, right int16) error
	RawEncoderCounts() (left, right int16, err error)
	Close() error
}

type PicoBLDC struct {
	dev *i2c.Device
	bus string

	lastConfigWord  uint16
	lastConfigTime  time.Time
	watchdogEnabled bool
}

func Dummy() Interface {
	return &dummyPico{}
}

func New(bus string) (*PicoBLDC, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, PicoAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Pico-BLDC on %s", bus)
	}

	pico := &PicoBLDC{
		dev: dev,
		bus: bus,
	}

	return pico, nil
}

var _ Interface = (*PicoBLDC)(nil)

func (p *PicoBLDC) Reset() error {
	return p.maybeConfigure(true, false)
}

func (p *PicoBLDC) RawEncoderCounts() (left, right int16, err error) {
	l, err := p.readReg(RegEncLeft)
	if err != nil {
		return 0, 0, err
	}
	r, err := p.readReg(RegEncRight)
	if err != nil {
		return 0, 0, err
	}
	return int16(l), int16(r), nil
}

func (p *PicoBLDC) SetWatchdog(timeout time.Duration) error {
	if timeout == 0 {
		// Disable.
		p.watchdogEnabled = false
		return p.maybeConfigure(false, false)
	}

	ms := timeout.Milliseconds()
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	err := p.writeReg(RegWatchdogTimeout, uint16(ms))
	if err != nil {
		return err
	}

	p.watchdogEnabled = true
	return p.maybeConfigure(false, false)
}

func (p *PicoBLDC) SetMotorSpeeds(left, right int16) error {
	if err := p.maybeConfigure(false, true); err != nil {
		return err
	}
	if err := p.writeReg(RegMotLeftV, uint16(left)); err != nil {
		return err
	}
	// Right motor is mounted mirrored.
	if err := p.writeReg(RegMotRightV, uint16(negate(right))); err != nil {
		return err
	}
	return nil
}

func negate(v int16) int16 {
	if v == math.MinInt16 {
		return math.MaxInt16
	}
	return -v
}

func (p *PicoBLDC) Close() error {
	_ = p.Reset()
	return p.dev.Close()
}

func (p *PicoBLDC) writeWithRetries(data []byte) error {
	var err error
	for tries := 0; tries < 20; tries++ {
		err = p.dev.Write(data)
		if err == nil {
			if tries > 0 {
				fmt.Println("Successfully programmed Pico-BLDC after retries")
			}
			return nil
		}
		fmt.Println("Failed to write to Pico-BLDC:", err)
		time.Sleep(1 * time.Millisecond)
		_ = p.dev.Close()
		dev, err := i2c.Open(&i2c.Devfs{Dev: p.bus}, PicoAddr)
		if err != nil {
			continue
		}
		p.dev = dev
	}
	panic("Failed to write to Pico-BLDC")
}

func (p *PicoBLDC) maybeConfigure(resetMotorSpeeds bool, enableMotors bool) error {
	// Figure out if the config word has changed.
	var configWord uint16 = RegCtrlEnableI2CControl
	if resetMotorSpeeds {
		configWord |= RegCtrlReset
	}
	if enableMotors {
		configWord |= RegCtrlRun
	}
	if p.watchdogEnabled {
		configWord |= RegCtrlWatchdogEnable
	}

	if configWord == p.lastConfigWord && time.Since(p.lastConfigTime) < 100*time.Millisecond {
		// Skip writing config if we've done it recently.
		return nil
	}

	if p.lastConfigWord == 0 {
		// First time.  Figure out calibration...
		calib, err := p.readReg(RegMotRightCalib)
		if err != nil {
			return err
		}
		if calib == 0 {
			// Calibration register empty, do a calibration.  Wheels must be off the ground.
			fmt.Println("Pico-BLDC not calibrated, running calibration...")
			configWord |= RegCtrlDoCalib
		}
	}

	if err := p.writeReg(RegCtrl, configWord); err != nil {
		return err
	}

	if configWord&RegCtrlDoCalib != 0 {
		if err := p.waitForCalibration(); err != nil {
			return err
		}
	}

	if err := p.writeReg(RegStatus, uint16(RegStatusCalibDone)); err != nil {
		return err
	}

	p.lastConfigTime = time.Now()
	p.lastConfigWord = configWord & (^RegCtrlReset) /* Reset flag is not persistent */
	return nil
}

func (p *PicoBLDC) waitForCalibration() error {
	var lastPrint time.Time
	for {
		status, err := p.readReg(RegStatus)
		if err != nil {
			fmt.Printf("Pico: failed to read status register: %v\n", err)
		}
		if status&uint16(RegStatusCalibDone) != 0 {
			break
		}
		if time.Since(lastPrint) > time.Second {
			fmt.Printf("Waiting for calibration to finish... Status=%x\n", status)
			lastPrint = time.Now()
		}
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("Calibration words:")
	for r := RegMotLeftCalib; r <= RegMotRightCalib; r++ {
		v, err := p.readReg(r)
		if err != nil {
			return err
		}
		fmt.Printf(" %04x", v)
	}
	fmt.Print("\n")
	return nil
}

func (p *PicoBLDC) BattVolts() (float32, error) {
	raw, err := p.readReg(RegBattV)
	if err != nil {
		return 0, err
	}
	return float32(raw) * BattVLSB, nil
}

func (p *PicoBLDC) TemperatureC() (float32, error) {
	raw, err := p.readReg(RegTemperature)
	if err != nil {
		return 0, err
	}
	return float32(raw) * TemperatureLSB, nil
}

func (p *PicoBLDC) Status() (StatusFlag, error) {
	raw, err := p.readReg(RegStatus)
	if err != nil {
		return 0, err
	}
	return StatusFlag(raw), nil
}

func (p *PicoBLDC) writeReg(reg Register, value uint16) error {
	return p.writeWithRetries([]byte{byte(reg), byte(value >> 8), byte(value)})
}

func (p *PicoBLDC) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	err := p.dev.ReadReg(byte(reg), buf[:])
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read Pico-BLDC register %d", reg)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

type dummyPico struct {
}

func (p *dummyPico) RawEncoderCounts() (left, right int16, err error) {
	return
}

func (p *dummyPico) SetMotorSpeeds(left, right int16) error {
	fmt.Printf("Dummy picobldc setting motors: l=%v r=%v\n", left, right)
	return nil
}

func (p *dummyPico) Close() error {
	return nil
}
