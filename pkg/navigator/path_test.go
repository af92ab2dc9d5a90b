package navigator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/geom"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/simrig"
)

func TestPathQueue(t *testing.T) {
	p := NewPath(geom.V(1, 1))
	p.Push(geom.V(2, 2))
	assert.Equal(t, 2, p.Len())
	head, ok := p.Peek()
	require.True(t, ok)
	assert.Equal(t, geom.V(1, 1), head)
	assert.Equal(t, 2, p.Len(), "peek must not remove")

	v, _ := p.Pop()
	assert.Equal(t, geom.V(1, 1), v)
	v, _ = p.Pop()
	assert.Equal(t, geom.V(2, 2), v)
	_, ok = p.Pop()
	assert.False(t, ok)
	_, ok = p.Peek()
	assert.False(t, ok)
}

func TestFollowPathWithInterruptSetNeverDequeues(t *testing.T) {
	nav, rig, sig := newSimNavigator(origin)
	sig.Set(true)
	path := NewPath(geom.V(0, 20), geom.V(20, 20), geom.V(20, 0))
	require.NoError(t, FollowPath(context.Background(), nav, path, sig))
	assert.Equal(t, 3, path.Len())
	assert.Equal(t, time.Duration(0), rig.Sim.Elapsed())
}

func TestFollowPath(t *testing.T) {
	nav, rig, sig := newSimNavigator(origin)
	path := NewPath(geom.V(0, 20), geom.V(20, 20), geom.V(20, 0), geom.V(0, 0))
	require.NoError(t, FollowPath(context.Background(), nav, path, sig))
	assert.Equal(t, 0, path.Len())
	assert.Less(t, rig.Sim.TruePose().Position.Norm(), 3.0)
}

func TestFollowPathWithoutSignal(t *testing.T) {
	rig := simrig.New(origin)
	nav := New(rig.Res, rig.Odometer, nil, DefaultParams())
	path := NewPath(geom.V(0, 20), geom.V(20, 20))
	require.NoError(t, FollowPath(context.Background(), nav, path, nil))
	assert.Equal(t, 0, path.Len())
	assert.Less(t, rig.Sim.TruePose().Position.Sub(geom.V(20, 20)).Norm(), 3.0)
}

func TestFollowPathInterruptedKeepsRemainingWaypoints(t *testing.T) {
	nav, rig, sig := newSimNavigator(origin)
	// Fires while turning towards the second waypoint.
	rig.Pacer.Every(4*time.Second, func() { sig.Set(true) })
	path := NewPath(geom.V(0, 20), geom.V(20, 20), geom.V(20, 0))
	require.NoError(t, FollowPath(context.Background(), nav, path, sig))
	assert.Equal(t, []geom.Vec2{geom.V(20, 20), geom.V(20, 0)}, path.Remaining())
}
