package vango

import (
	"sync"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

type schedulerState uint8

const (
	schedulerIdle schedulerState = iota
	schedulerRunning
	schedulerStopped
)

// RenderScheduler collects pending state mutations and dirty slots until
// the next render pass drains them.
//
// Its lifetime is explicit: the embedder calls Init before mounting and
// Teardown when done. Recording is safe from any goroutine; draining is
// done by the Renderer that owns it. Multiple writes between two passes
// coalesce into a single pass.
type RenderScheduler struct {
	mu      sync.Mutex
	state   schedulerState
	pending []mutation
	dirty   map[vdom.SlotID]struct{}
	wake    chan struct{}
}

// NewRenderScheduler returns a scheduler in its initial, not yet running
// state.
func NewRenderScheduler() *RenderScheduler {
	return &RenderScheduler{
		dirty: make(map[vdom.SlotID]struct{}),
		wake:  make(chan struct{}, 1),
	}
}

// Init starts the scheduler. Calling it on a running scheduler is a no-op;
// a torn-down scheduler cannot be restarted.
func (s *RenderScheduler) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case schedulerStopped:
		return ErrSchedulerStopped
	case schedulerIdle:
		s.state = schedulerRunning
	}
	return nil
}

// Teardown stops the scheduler, drops anything pending and closes the
// Wake channel.
func (s *RenderScheduler) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == schedulerStopped {
		return
	}
	s.state = schedulerStopped
	s.pending = nil
	s.dirty = make(map[vdom.SlotID]struct{})
	close(s.wake)
}

// Running reports whether Init was called and Teardown was not.
func (s *RenderScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == schedulerRunning
}

// Schedule marks slot as needing a render in the next pass. Scheduling the
// same slot repeatedly before a pass is the same as scheduling it once.
func (s *RenderScheduler) Schedule(slot vdom.SlotID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != schedulerRunning {
		return
	}
	s.dirty[slot] = struct{}{}
	s.notify()
}

func (s *RenderScheduler) enqueue(m mutation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != schedulerRunning {
		return
	}
	s.pending = append(s.pending, m)
	s.dirty[m.cell.slot] = struct{}{}
	s.notify()
}

// notify wakes a waiting driver without blocking. Must hold mu.
func (s *RenderScheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether a pass has work to do.
func (s *RenderScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0 || len(s.dirty) > 0
}

// Wake returns a channel that receives a value whenever work is scheduled.
// It is closed by Teardown. Drivers that flush from their own goroutine
// select on it and call Renderer.Flush.
func (s *RenderScheduler) Wake() <-chan struct{} {
	return s.wake
}

// drain takes all pending mutations and dirty slots.
func (s *RenderScheduler) drain() ([]mutation, map[vdom.SlotID]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, dirty := s.pending, s.dirty
	s.pending = nil
	s.dirty = make(map[vdom.SlotID]struct{})
	return ms, dirty
}

// restore puts dirty slots back after an aborted pass.
func (s *RenderScheduler) restore(dirty map[vdom.SlotID]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != schedulerRunning {
		return
	}
	for slot := range dirty {
		s.dirty[slot] = struct{}{}
	}
}
