// Package task manages the recurring work contracts schedule on a chain.
// Tasks are persisted in chain state and evaluated at the start of every
// block in the order they were created.
package task

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("task not found")

// Mode selects the unit the frequency and delay are measured in.
type Mode byte

// Set of task modes.
const (
	ModeBlocks Mode = iota + 1
	ModeSeconds
	ModeAlways
)

// String implements the fmt.Stringer interface.
func (m Mode) String() string {
	switch m {
	case ModeBlocks:
		return "blocks"
	case ModeSeconds:
		return "seconds"
	case ModeAlways:
		return "always"
	}
	return fmt.Sprintf("mode(%d)", m)
}

// ParseMode converts the text form of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "blocks":
		return ModeBlocks, nil
	case "seconds":
		return ModeSeconds, nil
	case "always":
		return ModeAlways, nil
	}
	return 0, fmt.Errorf("unknown task mode %q", s)
}

// Task is a contract method the chain calls on a schedule.
type Task struct {
	ID            uint64           `json:"id"`
	Owner         database.Address `json:"owner"`
	Contract      string           `json:"contract"`
	Method        string           `json:"method"`
	Frequency     uint64           `json:"frequency"`
	Mode          Mode             `json:"mode"`
	Delay         uint64           `json:"delay"`
	GasLimit      uint64           `json:"gas_limit"`
	CreatedHeight uint64           `json:"created_height"`
	CreatedTime   uint64           `json:"created_time"`
	LastRun       uint64           `json:"last_run"`
	HasRun        bool             `json:"has_run"`
}

// Run returns the position of the chain in the unit of the task mode.
func (t Task) Run(height uint64, now uint64) uint64 {
	if t.Mode == ModeSeconds {
		return now
	}
	return height
}

// IsDue reports if the task must run at the specified height and time.
// Always mode tasks run every block. Otherwise the first run waits for the
// delay since creation and every later run waits for the frequency since
// the previous one.
func (t Task) IsDue(height uint64, now uint64) bool {
	if t.Mode == ModeAlways {
		return true
	}

	current := t.Run(height, now)

	if !t.HasRun {
		created := t.Run(t.CreatedHeight, t.CreatedTime)
		return created+t.Delay <= current
	}

	if current < t.LastRun {
		return false
	}
	return current-t.LastRun >= t.Frequency
}

// =============================================================================

// Store keeps the tasks of one chain.
type Store struct {
	st contract.Storage
}

var (
	nextID  = contract.NewValue[uint64]("task", "next")
	ids     = contract.NewList[uint64]("task", "ids")
	entries = contract.NewMap[Task]("task", "entry")
)

// NewStore constructs a store over chain state.
func NewStore(st contract.Storage) *Store {
	return &Store{st: st}
}

// Add assigns the next id to the task and persists it.
func (s *Store) Add(t Task) (Task, error) {
	if t.Mode < ModeBlocks || t.Mode > ModeAlways {
		return Task{}, fmt.Errorf("invalid task mode %d", t.Mode)
	}
	if t.Mode != ModeAlways && t.Frequency == 0 {
		return Task{}, errors.New("task frequency must be greater than zero")
	}

	id, _, err := nextID.Get(s.st)
	if err != nil {
		return Task{}, err
	}
	id++

	t.ID = id
	t.HasRun = false
	t.LastRun = 0

	if err := nextID.Set(s.st, id); err != nil {
		return Task{}, err
	}
	if err := entries.Set(s.st, key(id), t); err != nil {
		return Task{}, err
	}
	if err := ids.Add(s.st, id); err != nil {
		return Task{}, err
	}

	return t, nil
}

// Get returns the task with the id.
func (s *Store) Get(id uint64) (Task, error) {
	t, found, err := entries.Get(s.st, key(id))
	if err != nil {
		return Task{}, err
	}
	if !found {
		return Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return t, nil
}

// Update writes back a task that already exists.
func (s *Store) Update(t Task) error {
	if _, err := s.Get(t.ID); err != nil {
		return err
	}
	return entries.Set(s.st, key(t.ID), t)
}

// Remove deletes the task.
func (s *Store) Remove(id uint64) error {
	list, err := ids.All(s.st)
	if err != nil {
		return err
	}

	for i, v := range list {
		if v == id {
			entries.Delete(s.st, key(id))
			return ids.RemoveAt(s.st, i)
		}
	}

	return fmt.Errorf("%w: %d", ErrNotFound, id)
}

// List returns every task in creation order.
func (s *Store) List() ([]Task, error) {
	list, err := ids.All(s.st)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(list))
	for _, id := range list {
		t, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func key(id uint64) string {
	return strconv.FormatUint(id, 10)
}
