package sensor

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/filter"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/poll"
)

type scriptedDistance struct {
	values []int
	i      int
	err    error
}

func (s *scriptedDistance) Sample() ([]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	v := s.values[s.i]
	if s.i < len(s.values)-1 {
		s.i++
	}
	return []int{v}, nil
}

func median3() filter.Filter { return filter.NewMedian(3) }

func TestPollerFiltersAndCopies(t *testing.T) {
	src := &scriptedDistance{values: []int{30, 31, 250, 32}}
	p := NewDistance("front", src, clock.NewMock(), 20*time.Millisecond, median3)

	_, err := p.Sample()
	assert.Equal(t, hardware.ErrNotReady, err)

	for i := 0; i < 4; i++ {
		p.Tick()
	}
	v, err := p.Sample()
	require.NoError(t, err)
	assert.Equal(t, []float64{32}, v, "spike should be filtered out")

	v[0] = 1000
	again, _ := p.Sample()
	assert.Equal(t, []float64{32}, again, "Sample must return a copy")

	d, err := p.Distances().Sample()
	require.NoError(t, err)
	assert.Equal(t, []int{32}, d)
}

func TestPollerFilterToggle(t *testing.T) {
	src := &scriptedDistance{values: []int{10, 10, 10, 90}}
	p := NewDistance("side", src, clock.NewMock(), 20*time.Millisecond, median3)
	assert.True(t, p.UseFilter())

	p.SetUseFilter(false)
	for i := 0; i < 4; i++ {
		p.Tick()
	}
	v, _ := p.Sample()
	assert.Equal(t, []float64{90}, v)

	p.SetUseFilter(true)
	p.Tick()
	v, _ = p.Sample()
	assert.Equal(t, []float64{90}, v, "fresh window passes through")

	raw := NewDistance("raw", src, clock.NewMock(), 20*time.Millisecond, nil)
	assert.False(t, raw.UseFilter())
	raw.SetUseFilter(true)
	assert.False(t, raw.UseFilter())
}

func TestPollerKeepsLastValueOnError(t *testing.T) {
	src := &scriptedDistance{values: []int{40}}
	p := NewDistance("front", src, clock.NewMock(), 20*time.Millisecond, nil)
	p.Tick()
	src.err = errors.New("timeout")
	p.Tick()
	v, err := p.Sample()
	require.NoError(t, err)
	assert.Equal(t, []float64{40}, v)
}

func TestPollerRunsOnClock(t *testing.T) {
	mock := clock.NewMock()
	src := &scriptedDistance{values: []int{12}}
	p := NewDistance("front", src, mock, 20*time.Millisecond, nil)
	p.Start()
	defer p.Stop()

	mock.Add(20 * time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := p.Sample()
		return err == nil
	}, time.Second, time.Millisecond)

	p.SetPollingRate(50 * time.Millisecond)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	n := 0
	src := func() ([]float64, error) {
		n++
		if n == 2 {
			return nil, errors.New("not ready")
		}
		return []float64{float64(n), 0.5}, nil
	}
	yields := 0
	y := poll.YielderFunc(func(ctx context.Context) error {
		yields++
		return nil
	})

	path, err := Collect(context.Background(), y, dir, "light", src, 3, 1234)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "light-1234.csv"))
	assert.Equal(t, 2, yields)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,0.5\n\n3,0.5\n", string(data))
}
