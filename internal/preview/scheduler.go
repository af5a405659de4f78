// Package preview drives interactive re-rendering while the user adjusts
// the value range and palette before an export is committed.
package preview

import (
	"sync"
	"sync/atomic"
	"time"

	"raster-export/internal/monitoring"
	"raster-export/internal/render"
)

// State is the scheduler's position in its debounce/render cycle.
type State int32

const (
	Idle State = iota
	PendingDebounce
	Rendering
	Stale
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingDebounce:
		return "pending"
	case Rendering:
		return "rendering"
	case Stale:
		return "stale"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// DefaultDebounce is the quiet period after the last edit before a render.
const DefaultDebounce = 300 * time.Millisecond

// RenderFunc produces one frame for the given parameters.
type RenderFunc func(render.Params) (*render.Result, error)

// Callbacks receive published results. Both run on the scheduler's own
// goroutine and must not call back into the scheduler synchronously.
type Callbacks struct {
	OnFrame func(*render.Result)
	OnError func(error)
}

type job struct {
	seq uint64
	res *render.Result
	err error
}

// Scheduler debounces parameter updates and runs at most one render at a
// time. All state lives in the loop goroutine.
type Scheduler struct {
	render   RenderFunc
	debounce time.Duration
	cb       Callbacks

	updates chan render.Params
	done    chan job
	quit    chan struct{}
	exited  chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
}

// NewScheduler starts a scheduler. A non-positive debounce uses
// DefaultDebounce.
func NewScheduler(fn RenderFunc, debounce time.Duration, cb Callbacks) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	s := &Scheduler{
		render:   fn,
		debounce: debounce,
		cb:       cb,
		updates:  make(chan render.Params),
		done:     make(chan job, 1),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Update records new parameters. It never waits for a render.
func (s *Scheduler) Update(p render.Params) {
	select {
	case s.updates <- p:
	case <-s.exited:
	}
}

// State reports the current state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Close stops the loop. A render still running finishes in the background
// and its result is dropped.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.exited
}

func (s *Scheduler) loop() {
	defer close(s.exited)

	var (
		state   = Idle
		pending render.Params
		timer   = time.NewTimer(time.Hour)
		timerC  <-chan time.Time
		seq     uint64
	)
	timer.Stop()

	restart := func() {
		timer.Stop()
		timer.Reset(s.debounce)
		timerC = timer.C
	}
	set := func(st State) {
		state = st
		s.state.Store(int32(st))
	}

	for {
		select {
		case p := <-s.updates:
			pending = p
			switch state {
			case Idle, PendingDebounce:
				restart()
				set(PendingDebounce)
			case Rendering:
				set(Stale)
			}

		case <-timerC:
			timerC = nil
			if state != PendingDebounce {
				continue
			}
			seq++
			set(Rendering)
			go s.run(seq, pending)

		case j := <-s.done:
			if j.seq != seq {
				continue
			}
			s.publish(j)
			if state == Stale {
				restart()
				set(PendingDebounce)
			} else {
				set(Idle)
			}

		case <-s.quit:
			timer.Stop()
			set(Closed)
			return
		}
	}
}

func (s *Scheduler) run(seq uint64, p render.Params) {
	res, err := s.render(p)
	select {
	case s.done <- job{seq: seq, res: res, err: err}:
	case <-s.exited:
		monitoring.Logf("preview: dropping render %d after close", seq)
	}
}

func (s *Scheduler) publish(j job) {
	if j.err != nil {
		if s.cb.OnError != nil {
			s.cb.OnError(j.err)
		}
		return
	}
	if s.cb.OnFrame != nil {
		s.cb.OnFrame(j.res)
	}
}
