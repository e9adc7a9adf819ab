package reactive

import (
	"sync"

	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/scheduler"
)

// Scheduler interface for reactive system
type Scheduler interface {
	MarkDirty(task *scheduler.Task)
}

// State is a value whose writes mark the subscribed tasks dirty and notify
// watchers synchronously.
type State[T any] struct {
	value T
	mu    sync.RWMutex

	// tasks that re-run on the next frame when the value changes
	deps      map[uint32]*scheduler.Task
	depsMu    sync.RWMutex
	scheduler Scheduler

	watchers  map[uint64]func(T)
	nextWatch uint64
}

// NewState creates a new reactive state
func NewState[T any](initial T, sched Scheduler) *State[T] {
	return &State[T]{
		value:     initial,
		deps:      make(map[uint32]*scheduler.Task),
		scheduler: sched,
		watchers:  make(map[uint64]func(T)),
	}
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and marks dependent tasks as dirty
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	s.notify(value)
}

// Subscribe adds a task as a dependency
func (s *State[T]) Subscribe(task *scheduler.Task) {
	if task == nil {
		return
	}

	s.depsMu.Lock()
	defer s.depsMu.Unlock()
	s.deps[task.ID()] = task
}

// Watch registers fn to be called with every new value. The returned func
// removes the watcher.
func (s *State[T]) Watch(fn func(T)) (cancel func()) {
	s.depsMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.depsMu.Unlock()

	return func() {
		s.depsMu.Lock()
		delete(s.watchers, id)
		s.depsMu.Unlock()
	}
}

func (s *State[T]) notify(value T) {
	s.depsMu.RLock()
	deps := make([]*scheduler.Task, 0, len(s.deps))
	for _, task := range s.deps {
		deps = append(deps, task)
	}
	watchers := make([]func(T), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.depsMu.RUnlock()

	// outside the lock so watchers may write back
	for _, task := range deps {
		if s.scheduler == nil {
			debug.Logger().Warn("[State] no scheduler available", "task", task.Name())
			continue
		}
		s.scheduler.MarkDirty(task)
	}
	for _, fn := range watchers {
		fn(value)
	}
}
