package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/screen"
)

// Dummy logs every call and reports a robot that never moves and never
// sees anything.
type Dummy struct {
	lock        sync.Mutex
	left, right int
	display     *screen.Display
}

func NewDummy() *Dummy {
	return &Dummy{display: screen.NewDisplay()}
}

var _ Interface = (*Dummy)(nil)

func (d *Dummy) Start(ctx context.Context) error {
	fmt.Println("DHW: Start")
	return nil
}

func (d *Dummy) SetSpeeds(left, right int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if left != d.left || right != d.right {
		fmt.Printf("DHW: SetSpeeds l=%v r=%v\n", left, right)
	}
	d.left, d.right = left, right
}

func (d *Dummy) EncoderCounts() (left, right int, err error) {
	return 0, 0, nil
}

type dummyRanger struct{}

func (dummyRanger) Sample() ([]int, error) {
	return []int{SimMaxRange}, nil
}

type dummyLight struct{}

func (dummyLight) Sample() ([]float64, error) {
	return []float64{SimFloor}, nil
}

func (d *Dummy) FrontDistance() DistanceProvider {
	return dummyRanger{}
}

func (d *Dummy) SideDistance() DistanceProvider {
	return dummyRanger{}
}

func (d *Dummy) Light() IntensityProvider {
	return dummyLight{}
}

func (d *Dummy) Display() *screen.Display {
	return d.display
}

func (d *Dummy) Beep() {
	fmt.Println("DHW: Beep")
}

func (d *Dummy) BeepSequenceUp() {
	fmt.Println("DHW: BeepSequenceUp")
}

func (d *Dummy) Buzz() {
	fmt.Println("DHW: Buzz")
}

func (d *Dummy) Shutdown() error {
	fmt.Println("DHW: Shutdown")
	return nil
}
