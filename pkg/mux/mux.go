package mux

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	MuxAddr = 0x70

	BusMotors  = 0
	BusDisplay = 1

	BusPropeller = 7
)

type Interface interface {
	DisableAllPorts() error
	SelectSinglePort(num int) error
	Close() error
}

type Mux struct {
	dev *i2c.Device
}

func New(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, MuxAddr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open I2C mux")
	}
	return &Mux{
		dev: dev,
	}, nil
}

func (p *Mux) SelectSinglePort(num int) error {
	if num < 0 || num > 7 {
		return errors.Errorf("mux port %d out of range", num)
	}
	return p.dev.Write([]byte{1 << uint(num)})
}

func (p *Mux) DisableAllPorts() error {
	return p.dev.Write([]byte{0})
}

func (p *Mux) Close() error {
	return p.dev.Close()
}

func Dummy() Interface {
	return &dummyMux{}
}

type dummyMux struct {
	port int
}

func (p *dummyMux) SelectSinglePort(num int) error {
	if num != p.port {
		fmt.Printf("Dummy Mux setting port=%d\n", num)
		p.port = num
	}
	return nil
}

func (p *dummyMux) DisableAllPorts() error {
	fmt.Printf("Dummy Mux disabling all ports\n")
	p.port = -1
	return nil
}

func (p *dummyMux) Close() error {
	return nil
}
