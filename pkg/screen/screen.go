package screen

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
)

const S = 128

type Status struct {
	Pose    geom.Pose
	Target  *geom.Vec2
	Mode    string
	Message string
}

// Display holds what the screen should show next.  Producers update it
// whenever they like; the screen loop renders the latest state.
type Display struct {
	lock       sync.Mutex
	status     Status
	poseSource func() geom.Pose
}

func NewDisplay() *Display {
	return &Display{}
}

// SetPoseSource makes every render pick up the live pose.
func (d *Display) SetPoseSource(f func() geom.Pose) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.poseSource = f
}

func (d *Display) SetMode(mode string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.status.Mode = mode
}

func (d *Display) SetMessage(msg string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.status.Message = msg
}

func (d *Display) SetTarget(t *geom.Vec2) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.status.Target = t
}

func (d *Display) Current() Status {
	d.lock.Lock()
	s := d.status
	src := d.poseSource
	d.lock.Unlock()
	if src != nil {
		s.Pose = src()
	}
	return s
}

func (d *Display) LoopUpdatingScreen(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	var buf [S * S * 2]byte
	for range ticker.C {
		if ctx.Err() != nil {
			buf = [S * S * 2]byte{}
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		}

		img := Render(d.Current())
		toRGB565(img, buf[:])

		_, err = f.Seek(0, 0)
		if err != nil {
			fmt.Println("Screen failure: ", err)
			return
		}
		for i := 0; i < S; i++ {
			_, err = f.Write(buf[i*S*2 : i*S*2+S*2])
			if err != nil {
				fmt.Println("Screen failure: ", err)
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// Render draws the status page: pose readout at the top, a compass needle
// for the heading and the mode/message lines at the bottom.
func Render(s Status) image.Image {
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(fmt.Sprintf("X: %7.2f", s.Pose.Position.X()), 4, 14)
	dc.DrawString(fmt.Sprintf("Y: %7.2f", s.Pose.Position.Y()), 4, 28)
	dc.DrawString(fmt.Sprintf("T: %7.2f", geom.Degrees(s.Pose.Heading)), 4, 42)

	drawCompass(dc, s.Pose.Heading, 96, 30, 20)

	if s.Target != nil {
		dc.SetRGB(0.5, 0.8, 1)
		dc.DrawString(fmt.Sprintf("-> %v", *s.Target), 4, 70)
	}
	if s.Mode != "" {
		dc.SetRGB(1, 1, 1)
		dc.DrawString(s.Mode, 4, 96)
	}
	if s.Message != "" {
		DrawWarning(dc, s.Message)
	}
	return dc.Image()
}

func drawCompass(dc *gg.Context, heading, cx, cy, r float64) {
	dc.Push()
	defer dc.Pop()
	dc.SetLineWidth(2)
	dc.DrawCircle(cx, cy, r)
	dc.Stroke()
	// Screen y grows downwards.
	dc.DrawLine(cx, cy, cx+r*math.Cos(heading), cy-r*math.Sin(heading))
	dc.Stroke()
}

func DrawWarning(dc *gg.Context, msg string) {
	dc.Push()
	defer dc.Pop()
	dc.Translate(12, 116)
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 8, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -2, 3)
	dc.SetRGB(1, 0.2, 0)
	dc.DrawString(msg, 12, 4)
}

// toRGB565 packs img into the framebuffer's rotated 16-bit layout.
func toRGB565(img image.Image, buf []byte) {
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
}
