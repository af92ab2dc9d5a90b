// Package sensor polls raw providers on a schedule and optionally smooths
// what they return.
package sensor

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/filter"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/flagbot/pkg/periodic"
)

// Filterable is anything whose output smoothing can be switched on and off.
type Filterable interface {
	UseFilter() bool
	SetUseFilter(bool)
}

type source func() ([]float64, error)

// Poller samples a provider every interval and keeps the latest (optionally
// filtered) values.  A failed read keeps the previous values.
type Poller struct {
	name   string
	source source
	task   *periodic.Task

	lock      sync.Mutex
	filters   []filter.Filter
	newFilter func() filter.Filter
	useFilter bool
	latest    []float64
}

var (
	_ periodic.Runner = (*Poller)(nil)
	_ periodic.Ticker = (*Poller)(nil)
	_ Filterable      = (*Poller)(nil)
)

func newPoller(name string, src source, clk clock.Clock, interval time.Duration, newFilter func() filter.Filter) *Poller {
	p := &Poller{
		name:      name,
		source:    src,
		newFilter: newFilter,
		useFilter: newFilter != nil,
	}
	p.task = periodic.Schedule(clk, interval, p)
	return p
}

// NewDistance polls a distance provider.  newFilter may be nil for raw
// readings; otherwise one filter is created per channel.
func NewDistance(name string, p hardware.DistanceProvider, clk clock.Clock, interval time.Duration, newFilter func() filter.Filter) *Poller {
	return newPoller(name, func() ([]float64, error) {
		raw, err := p.Sample()
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(raw))
		for i, v := range raw {
			out[i] = float64(v)
		}
		return out, nil
	}, clk, interval, newFilter)
}

func NewIntensity(name string, p hardware.IntensityProvider, clk clock.Clock, interval time.Duration, newFilter func() filter.Filter) *Poller {
	return newPoller(name, p.Sample, clk, interval, newFilter)
}

func (p *Poller) Name() string {
	return p.name
}

func (p *Poller) Tick() {
	raw, err := p.source()
	if err != nil {
		return
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.useFilter {
		for len(p.filters) < len(raw) {
			p.filters = append(p.filters, p.newFilter())
		}
		smoothed := make([]float64, len(raw))
		for i, v := range raw {
			smoothed[i] = p.filters[i].Apply(v)
		}
		raw = smoothed
	}
	p.latest = raw
}

// Sample returns a copy of the latest values.
func (p *Poller) Sample() ([]float64, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.latest == nil {
		return nil, hardware.ErrNotReady
	}
	out := make([]float64, len(p.latest))
	copy(out, p.latest)
	return out, nil
}

func (p *Poller) UseFilter() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.useFilter
}

// SetUseFilter switches smoothing on or off.  Switching on starts from empty
// windows.  It has no effect on a poller built without a filter.
func (p *Poller) SetUseFilter(use bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.newFilter == nil {
		return
	}
	if use && !p.useFilter {
		p.filters = nil
	}
	p.useFilter = use
}

func (p *Poller) SetPollingRate(d time.Duration) {
	p.task.SetInterval(d)
}

func (p *Poller) Start() {
	p.task.Start()
}

func (p *Poller) Stop() {
	p.task.Stop()
}

// Distances presents the poller as a distance provider, rounding to whole
// centimetres.
func (p *Poller) Distances() hardware.DistanceProvider {
	return distanceView{p}
}

type distanceView struct {
	p *Poller
}

func (d distanceView) Sample() ([]int, error) {
	vals, err := d.p.Sample()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(math.Round(v))
	}
	return out, nil
}

// Intensities presents the poller as an intensity provider.
func (p *Poller) Intensities() hardware.IntensityProvider {
	return p
}
