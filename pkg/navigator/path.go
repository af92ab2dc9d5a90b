package navigator

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/interrupt"
)

// Path is a FIFO queue of waypoints, safe for concurrent use.
type Path struct {
	lock   sync.Mutex
	points []geom.Vec2
}

func NewPath(points ...geom.Vec2) *Path {
	return &Path{points: append([]geom.Vec2(nil), points...)}
}

func (p *Path) Push(v geom.Vec2) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.points = append(p.points, v)
}

func (p *Path) Peek() (geom.Vec2, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.points) == 0 {
		return geom.Vec2{}, false
	}
	return p.points[0], true
}

func (p *Path) Pop() (geom.Vec2, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.points) == 0 {
		return geom.Vec2{}, false
	}
	v := p.points[0]
	p.points = p.points[1:]
	return v, true
}

func (p *Path) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.points)
}

// Remaining returns a copy of the waypoints still queued.
func (p *Path) Remaining() []geom.Vec2 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]geom.Vec2(nil), p.points...)
}

// FollowPath travels to each waypoint in turn, removing a waypoint only once
// it has been reached.  If sig is set it returns early and the unreached
// waypoints stay queued for a later call.  A nil sig never interrupts.
func FollowPath(ctx context.Context, nav *Navigator, path *Path, sig *interrupt.Signal) error {
	for path.Len() > 0 && !(sig != nil && sig.Get()) {
		next, _ := path.Peek()
		if err := nav.TravelTo(ctx, next, true); err != nil {
			return err
		}
		if !nav.IsNavigating() {
			fmt.Println("NAV: Reached", next)
			path.Pop()
		}
	}
	return ctx.Err()
}
