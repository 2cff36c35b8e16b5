package task

import (
	"errors"
)

// EventHandler defines a function that is called when events occur while
// tasks are processed.
type EventHandler func(v string, args ...any)

// RunFunc executes a task. The boolean asks for the task to stop. A
// returned error marks the task as crashed.
type RunFunc func(t Task) (halt bool, err error)

// Outcome describes what happened to a task that was due.
type Outcome struct {
	Task    Task
	Halted  bool
	Crashed bool
	Err     error
}

// Scheduler evaluates the tasks of a chain at the start of a block.
type Scheduler struct {
	store     *Store
	evHandler EventHandler
}

// NewScheduler constructs a scheduler over the store.
func NewScheduler(store *Store, evHandler EventHandler) *Scheduler {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Scheduler{
		store:     store,
		evHandler: ev,
	}
}

// Process runs every due task in creation order. Halted and crashed tasks
// are removed; the rest record the run. The returned error is only set when
// the task list itself could not be read or written.
func (s *Scheduler) Process(height uint64, now uint64, run RunFunc) ([]Outcome, error) {
	tasks, err := s.store.List()
	if err != nil {
		return nil, err
	}

	var outcomes []Outcome
	for _, snapshot := range tasks {

		// A task run earlier in this loop may have stopped this one.
		t, err := s.store.Get(snapshot.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return outcomes, err
		}

		if !t.IsDue(height, now) {
			continue
		}

		s.evHandler("task: Process: running: id[%d] %s.%s", t.ID, t.Contract, t.Method)

		halt, runErr := run(t)
		switch {
		case runErr != nil:
			s.evHandler("task: Process: crashed: id[%d]: %s", t.ID, runErr)
			if err := s.remove(t.ID); err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, Outcome{Task: t, Crashed: true, Err: runErr})

		case halt:
			s.evHandler("task: Process: halted: id[%d]", t.ID)
			if err := s.remove(t.ID); err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, Outcome{Task: t, Halted: true})

		default:
			t.HasRun = true
			t.LastRun = t.Run(height, now)
			if err := s.store.Update(t); err != nil && !errors.Is(err, ErrNotFound) {
				return outcomes, err
			}
			outcomes = append(outcomes, Outcome{Task: t})
		}
	}

	return outcomes, nil
}

// remove tolerates a task the run already stopped itself.
func (s *Scheduler) remove(id uint64) error {
	if err := s.store.Remove(id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
