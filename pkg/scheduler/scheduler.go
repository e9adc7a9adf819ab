// Package scheduler coalesces canvas work onto animation frames. A task marked
// dirty any number of times between two frames runs exactly once on the next
// Flush.
package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	cdebug "github.com/recera/flowcanvas/pkg/debug"
)

// TaskFunc is the work a task performs when its frame is flushed.
type TaskFunc func()

// ErrorHandler handles panics raised by a task.
// Returns true to keep the task scheduled, false to remove it
type ErrorHandler func(task *Task, err interface{}) bool

// Task is a named unit of per-frame work.
type Task struct {
	id   uint32
	name string
	run  TaskFunc

	dirty atomic.Bool

	onError ErrorHandler
}

// Scheduler owns the dirty queue.
type Scheduler struct {
	mu         sync.Mutex
	tasks      map[uint32]*Task
	nextID     uint32
	dirtyQueue []*Task

	defaultError ErrorHandler
}

// NewScheduler creates a new scheduler instance
func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks:      make(map[uint32]*Task),
		nextID:     1,
		dirtyQueue: make([]*Task, 0, 16),
	}
}

// SetDefaultErrorHandler sets the handler used by tasks created afterwards.
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.defaultError = handler
}

// CreateTask registers a task. It does not run until marked dirty and flushed.
func (s *Scheduler) CreateTask(name string, run TaskFunc) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	task := &Task{
		id:      id,
		name:    name,
		run:     run,
		onError: s.defaultError,
	}
	s.tasks[id] = task
	return task
}

// RemoveTask unregisters a task; a pending run is dropped.
func (s *Scheduler) RemoveTask(task *Task) {
	if task == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, task.id)
	task.dirty.Store(false)
}

// MarkDirty queues task for the next frame. Marking an already dirty task is
// a no-op.
func (s *Scheduler) MarkDirty(task *Task) {
	if task == nil {
		return
	}
	if !task.dirty.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	if _, ok := s.tasks[task.id]; !ok {
		s.mu.Unlock()
		task.dirty.Store(false)
		return
	}
	s.dirtyQueue = append(s.dirtyQueue, task)
	s.mu.Unlock()

	cdebug.Logger().Debug("[Scheduler] task marked dirty", "task", task.name, "id", task.id)
}

// Discard drops a pending run of task. Marking it dirty again queues it
// for the next frame as usual.
func (s *Scheduler) Discard(task *Task) {
	if task == nil || !task.dirty.CompareAndSwap(true, false) {
		return
	}
	cdebug.Logger().Debug("[Scheduler] pending run discarded", "task", task.name, "id", task.id)
}

// Flush runs every dirty task once, in the order they were marked, and returns
// how many ran. Tasks marked dirty while flushing wait for the next frame.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	batch := s.dirtyQueue
	s.dirtyQueue = make([]*Task, 0, cap(batch))
	s.mu.Unlock()

	ran := 0
	for _, t := range batch {
		if s.processTask(t) {
			ran++
		}
	}
	return ran
}

func (s *Scheduler) processTask(task *Task) bool {
	if !task.dirty.CompareAndSwap(true, false) {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			s.handleTaskError(task, r)
		}
	}()
	task.run()
	return true
}

// handleTaskError handles a panic raised while running a task
func (s *Scheduler) handleTaskError(task *Task, err interface{}) {
	errorMsg := fmt.Sprintf("task %s (%d) panic: %v\n%s", task.name, task.id, err, debug.Stack())
	cdebug.Logger().Warn("[Scheduler] task panicked", "task", task.name, "error", fmt.Sprint(err))

	shouldContinue := false
	if task.onError != nil {
		shouldContinue = task.onError(task, errorMsg)
	}
	if !shouldContinue {
		s.RemoveTask(task)
	}
}

// ID returns the task's unique ID
func (t *Task) ID() uint32 {
	return t.id
}

// Name returns the name given at creation.
func (t *Task) Name() string {
	return t.name
}
