package lightsensor

import (
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const (
	DefaultPort = "/dev/spidev0.0"

	maxCount = 1023
)

type txer interface {
	Tx(w, r []byte) error
}

// MCP3008 reads downward-facing phototransistors wired to the channels of
// an MCP3008 ADC.  Readings are normalised to [0, 1].
type MCP3008 struct {
	c        txer
	channels []int

	w, r [3]byte
}

func NewSPI(port string, channels ...int) (*MCP3008, error) {
	if port == "" {
		port = DefaultPort
	}
	if len(channels) == 0 {
		channels = []int{0}
	}
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to init periph")
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %s", port)
	}
	c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MCP3008")
	}
	return newMCP3008(c, channels), nil
}

func newMCP3008(c txer, channels []int) *MCP3008 {
	return &MCP3008{c: c, channels: channels}
}

func (m *MCP3008) ReadChannel(ch int) (int, error) {
	if ch < 0 || ch > 7 {
		return 0, errors.Errorf("MCP3008 channel %d out of range", ch)
	}
	// Start bit, then single-ended mode and the channel number.
	m.w = [3]byte{0x01, byte(0x08|ch) << 4, 0}
	if err := m.c.Tx(m.w[:], m.r[:]); err != nil {
		return 0, errors.Wrap(err, "SPI transfer failed")
	}
	return Decode(m.r), nil
}

// Decode extracts the 10-bit conversion result from a response frame.
func Decode(r [3]byte) int {
	return int(r[1]&0x03)<<8 | int(r[2])
}

// Sample returns one normalised intensity per configured channel.
func (m *MCP3008) Sample() ([]float64, error) {
	out := make([]float64, len(m.channels))
	for i, ch := range m.channels {
		v, err := m.ReadChannel(ch)
		if err != nil {
			return nil, err
		}
		out[i] = float64(v) / maxCount
	}
	return out, nil
}
