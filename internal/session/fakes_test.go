package session

import (
	"sync"
	"time"
)

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock fires timers only when the test asks it to.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

// Tick fires the oldest live timer and reports whether there was one.
func (c *fakeClock) Tick() bool {
	c.mu.Lock()
	var next *fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	c.mu.Unlock()
	if next == nil {
		return false
	}
	next.f()
	return true
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *fakeClock) Timer(i int) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

// firstRNG always picks index 0.
type firstRNG struct{}

func (firstRNG) IntN(int) int { return 0 }

type spyRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *spyRecorder) Enqueue(_ string, characterID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, characterID)
	return true
}

func (r *spyRecorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}
