package rangefinder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

const DefaultDevice = "/dev/ttyAMA0"

// MaxRange is what the sensors report when nothing is in view.
const MaxRange = 255

const packetLen = 8

var syncBytes = []byte{0xaa, 0xaa}

var (
	ErrBadChecksum = errors.New("bad checksum")
	ErrNoReport    = errors.New("no report received yet")
)

// Report is one packet from the ultrasonic board: a front and a side
// distance in cm.
type Report struct {
	Time  time.Time
	Index uint8
	Front uint16
	Side  uint16
}

func (r Report) String() string {
	return fmt.Sprintf("[%02x] F:%3d S:%3d", r.Index, r.Front, r.Side)
}

// ParsePacket decodes one complete packet including the sync bytes.
func ParsePacket(buf []byte) (Report, error) {
	if len(buf) != packetLen {
		return Report{}, errors.Errorf("packet has length %d, expected %d", len(buf), packetLen)
	}
	if !bytes.Equal(buf[:2], syncBytes) {
		return Report{}, errors.New("packet is missing sync bytes")
	}
	var checksum uint8
	for _, b := range buf[2 : packetLen-1] {
		checksum += b
	}
	if buf[packetLen-1] != checksum {
		return Report{}, errors.Wrapf(ErrBadChecksum, "%x != %x", buf[packetLen-1], checksum)
	}
	return Report{
		Index: buf[2],
		Front: binary.LittleEndian.Uint16(buf[3:5]),
		Side:  binary.LittleEndian.Uint16(buf[5:7]),
	}, nil
}

// Rangefinder keeps the latest report from the serial-attached board.
// The front and side sensors are exposed as separate distance providers.
type Rangefinder struct {
	device string

	lock       sync.Mutex
	lastReport Report
	haveReport bool
}

func New(device string) *Rangefinder {
	if device == "" {
		device = DefaultDevice
	}
	return &Rangefinder{device: device}
}

func (r *Rangefinder) CurrentReport() (Report, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.lastReport, r.haveReport
}

func (r *Rangefinder) Front() Channel {
	return Channel{r: r, front: true}
}

func (r *Rangefinder) Side() Channel {
	return Channel{r: r}
}

// Channel is one of the two sensors on the board.
type Channel struct {
	r     *Rangefinder
	front bool
}

func (c Channel) Sample() ([]int, error) {
	rep, ok := c.r.CurrentReport()
	if !ok {
		return nil, ErrNoReport
	}
	v := rep.Side
	if c.front {
		v = rep.Front
	}
	if v > MaxRange {
		v = MaxRange
	}
	return []int{int(v)}, nil
}

func (r *Rangefinder) LoopReadingReports(ctx context.Context) {
	for ctx.Err() == nil {
		err := r.openAndLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		fmt.Println("RF: loop stopped; will retry", err)
		time.Sleep(100 * time.Millisecond)
	}
}

func (r *Rangefinder) openAndLoop(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: 115200,
	}
	s, err := serial.Open(r.device, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", r.device)
	}
	defer s.Close()
	return r.readLoop(ctx, s)
}

func (r *Rangefinder) readLoop(ctx context.Context, in io.Reader) error {
	br := bufio.NewReader(in)
resync:
	fmt.Println("RF: Resync...")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		buf, err := br.Peek(2)
		if err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
		if bytes.Equal(buf, syncBytes) {
			break
		}
		if _, err = br.Discard(1); err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
	}

	buf := make([]byte, packetLen)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
		report, err := ParsePacket(buf)
		if err != nil {
			fmt.Println("RF: dropping packet:", err)
			goto resync
		}
		report.Time = time.Now()
		r.setReport(report)
	}
}

func (r *Rangefinder) setReport(report Report) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lastReport = report
	r.haveReport = true
}
