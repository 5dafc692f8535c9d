package core

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call
type Timer interface {
	Stop() bool
}

// Scheduler runs a function after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DebounceState is the state of the debounce state machine
type DebounceState int

const (
	DebounceIdle DebounceState = iota
	DebounceScheduled
	DebounceRunning
)

func (s DebounceState) String() string {
	switch s {
	case DebounceScheduled:
		return "scheduled"
	case DebounceRunning:
		return "running"
	default:
		return "idle"
	}
}

// debouncer keeps at most one pending call; scheduling again supersedes it.
// A call that already started always runs to completion.
type debouncer struct {
	sched Scheduler

	mu         sync.Mutex
	state      DebounceState
	generation uint64
	timer      Timer
	running    int
}

func newDebouncer(sched Scheduler) *debouncer {
	return &debouncer{sched: sched}
}

// Schedule replaces any pending call with fn, to run after d
func (d *debouncer) Schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.state = DebounceScheduled
	d.timer = d.sched.AfterFunc(delay, func() { d.fire(gen, fn) })
}

func (d *debouncer) fire(gen uint64, fn func()) {
	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.state = DebounceRunning
	d.running++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running--
		if d.running == 0 && d.state == DebounceRunning {
			d.state = DebounceIdle
		}
		d.mu.Unlock()
	}()
	fn()
}

// Cancel drops the pending call, if any
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	if d.state == DebounceScheduled {
		if d.running > 0 {
			d.state = DebounceRunning
		} else {
			d.state = DebounceIdle
		}
	}
}

// State reports the current state
func (d *debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
