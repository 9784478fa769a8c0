// Package ticker provides the tick sources that pace the compositing loop.
//
// Refresh paces ticks against the wall clock at the display refresh rate.
// Ticks are scheduled on absolute intervals, so a slow consumer drops ticks
// instead of drifting. Stepped emits synthetic timestamps as fast as they are
// consumed, which makes headless runs and tests deterministic.
package ticker

import (
	"sync"
	"time"
)

// Ticker delivers tick timestamps until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Source starts tickers. start is the recording start time; the first tick
// is delivered one interval after it.
type Source interface {
	Start(start time.Time, interval time.Duration) Ticker
}

// Interval converts a rate in Hz into a tick interval
func Interval(rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(rate)
}

// Refresh is the wall-clock tick source
type Refresh struct{}

// Start implements Source
func (Refresh) Start(_ time.Time, interval time.Duration) Ticker {
	return &refreshTicker{t: time.NewTicker(interval)}
}

type refreshTicker struct {
	t *time.Ticker
}

func (r *refreshTicker) C() <-chan time.Time { return r.t.C }
func (r *refreshTicker) Stop()               { r.t.Stop() }

// Stepped is a deterministic tick source: tick n carries start + n*interval
// and is produced only when the previous one has been received.
type Stepped struct{}

// Start implements Source
func (Stepped) Start(start time.Time, interval time.Duration) Ticker {
	s := &steppedTicker{
		ch:   make(chan time.Time),
		done: make(chan struct{}),
	}
	go s.run(start, interval)
	return s
}

type steppedTicker struct {
	ch   chan time.Time
	done chan struct{}
	once sync.Once
}

func (s *steppedTicker) run(start time.Time, interval time.Duration) {
	for n := 1; ; n++ {
		select {
		case s.ch <- start.Add(time.Duration(n) * interval):
		case <-s.done:
			return
		}
	}
}

func (s *steppedTicker) C() <-chan time.Time { return s.ch }

func (s *steppedTicker) Stop() {
	s.once.Do(func() { close(s.done) })
}
