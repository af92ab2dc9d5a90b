package periodic

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Ticker is anything with a periodic step.
type Ticker interface {
	Tick()
}

// Runner is anything that can be started and stopped.
type Runner interface {
	Start()
	Stop()
}

// Task calls its callback at a fixed interval on its own goroutine.  Ticks
// never overlap: if one overruns, the next is simply late.
type Task struct {
	clock    clock.Clock
	callback func()

	lock     sync.Mutex
	interval time.Duration
	ticker   *clock.Ticker
	stop     chan struct{}
	done     chan struct{}
}

var _ Runner = (*Task)(nil)

func New(clk clock.Clock, interval time.Duration, callback func()) *Task {
	if clk == nil {
		clk = clock.New()
	}
	return &Task{
		clock:    clk,
		callback: callback,
		interval: interval,
	}
}

// Schedule is New for a Ticker.
func Schedule(clk clock.Clock, interval time.Duration, t Ticker) *Task {
	return New(clk, interval, t.Tick)
}

// Start begins ticking.  It is a no-op if the task is already running.
func (t *Task) Start() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stop != nil {
		return
	}
	t.ticker = t.clock.Ticker(t.interval)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.ticker, t.stop, t.done)
}

// Stop stops ticking and waits for any in-progress tick to finish.
func (t *Task) Stop() {
	t.lock.Lock()
	stop, done, ticker := t.stop, t.done, t.ticker
	t.stop, t.done, t.ticker = nil, nil, nil
	t.lock.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	ticker.Stop()
}

func (t *Task) Running() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.stop != nil
}

func (t *Task) Interval() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.interval
}

// SetInterval changes the tick period, taking effect immediately if running.
func (t *Task) SetInterval(d time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.interval = d
	if t.ticker != nil {
		t.ticker.Reset(d)
	}
}

func (t *Task) loop(ticker *clock.Ticker, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		select {
		case <-stop:
			return
		default:
		}
		t.callback()
	}
}
