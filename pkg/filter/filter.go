// Package filter smooths noisy sensor streams over a sliding window.
package filter

import (
	"sync"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Filter consumes one raw sample and returns the smoothed value.
type Filter interface {
	Apply(v float64) float64
	Reset()
}

type window struct {
	lock    sync.Mutex
	width   int
	samples []float64
}

// push adds v and reports whether the window is full.
func (w *window) push(v float64) ([]float64, bool) {
	w.samples = append(w.samples, v)
	if len(w.samples) > w.width {
		w.samples = w.samples[len(w.samples)-w.width:]
	}
	return w.samples, len(w.samples) == w.width
}

func (w *window) Reset() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.samples = nil
}

// Median passes samples through until width of them have been seen, then
// returns the median of the last width samples.
type Median struct {
	window
}

func NewMedian(width int) *Median {
	if width < 1 {
		width = 1
	}
	return &Median{window{width: width}}
}

func (m *Median) Apply(v float64) float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	samples, full := m.push(v)
	if !full {
		return v
	}
	med, err := stats.Median(stats.Float64Data(samples))
	if err != nil {
		return v
	}
	return med
}

// Average passes samples through until width of them have been seen, then
// returns the mean of the last width samples.
type Average struct {
	window
}

func NewAverage(width int) *Average {
	if width < 1 {
		width = 1
	}
	return &Average{window{width: width}}
}

func (a *Average) Apply(v float64) float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	samples, full := a.push(v)
	if !full {
		return v
	}
	return stat.Mean(samples, nil)
}
