// Package taskstore implements CRUD over the flat JSON task file.
//
// The backing file is rewritten wholesale on every mutation. A per-store
// mutex serializes the read-modify-write sequence so concurrent updates
// cannot lose writes; wire exactly one Store per backing file.
package taskstore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/state"
)

// Filters narrow List results; empty fields match everything. Set fields
// combine as an exact-match conjunction.
type Filters struct {
	Status   string
	Date     string
	Assignee string
}

// CreateInput holds the caller-supplied fields for a new task. Title is
// required; everything else defaults.
type CreateInput struct {
	Title    string
	Priority string
	Category string
	Date     string
	Deadline *string
	Assignee string
}

// Update carries the mutable fields of a task. Nil pointers are "leave
// unchanged"; anything outside this set is not mutable through the store.
type Update struct {
	Title    *string
	Status   *string
	Date     *string
	Deadline **string
	Priority *string
	Category *string
	Assignee *string
}

func (u Update) empty() bool {
	return u.Title == nil && u.Status == nil && u.Date == nil &&
		u.Deadline == nil && u.Priority == nil && u.Category == nil && u.Assignee == nil
}

// Store owns the tasks backing file.
type Store struct {
	mu  sync.Mutex
	dir *state.Dir
	now func() time.Time
}

// New creates a task store over the given state directory.
func New(dir *state.Dir) *Store {
	return &Store{dir: dir, now: time.Now}
}

// read loads the full task array. A missing file is an empty store; a
// corrupt file surfaces apperr.ErrCorrupt. Callers hold s.mu.
func (s *Store) read() ([]models.Task, error) {
	var tasks []models.Task
	err := s.dir.ReadJSON(state.TasksFile, &tasks)
	switch {
	case err == nil:
		return tasks, nil
	case errors.Is(err, apperr.ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

func (s *Store) write(tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return s.dir.WriteJSON(state.TasksFile, tasks)
}

// List returns tasks matching all set filters, in insertion order.
func (s *Store) List(f Filters) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Date != "" && t.Date != f.Date {
			continue
		}
		if f.Assignee != "" && t.Assignee != f.Assignee {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Create appends a new task with a fresh id and persists the full array.
func (s *Store) Create(in CreateInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("taskstore: title: %w", apperr.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := models.Task{
		ID:        newID(now),
		Title:     in.Title,
		Status:    models.StatusOpen,
		Date:      in.Date,
		Deadline:  in.Deadline,
		Priority:  in.Priority,
		Category:  in.Category,
		Assignee:  in.Assignee,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	if task.Date == "" {
		task.Date = now.UTC().Format("2006-01-02")
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Category == "" {
		task.Category = models.CategoryOther
	}
	if task.Assignee == "" {
		task.Assignee = models.AssigneeAgent
	}

	tasks = append(tasks, task)
	if err := s.write(tasks); err != nil {
		return nil, err
	}
	return &task, nil
}

// Apply mutates the task with the given id. Only the allow-listed fields
// in Update can change; an empty Update persists the record unchanged.
func (s *Store) Apply(id string, u Update) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range tasks {
		if tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("taskstore: %s: %w", id, apperr.ErrNotFound)
	}

	t := &tasks[idx]
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.Deadline != nil {
		t.Deadline = *u.Deadline
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Assignee != nil {
		t.Assignee = *u.Assignee
	}

	if err := s.write(tasks); err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

// Delete removes the task with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return s.write(tasks)
		}
	}
	return fmt.Errorf("taskstore: %s: %w", id, apperr.ErrNotFound)
}

// Stats returns totals and the current task: the first in-progress task
// in insertion order, i.e. the earliest created still in progress.
func (s *Store) Stats() (models.TaskStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		return models.TaskStats{}, err
	}
	stats := models.TaskStats{Total: len(tasks)}
	for i := range tasks {
		switch tasks[i].Status {
		case models.StatusDone:
			stats.Completed++
		case models.StatusInProgress:
			if stats.CurrentTask == nil {
				stats.CurrentTask = &tasks[i].Title
			}
		}
	}
	return stats, nil
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID builds a task id from the creation timestamp plus a random base36
// suffix, so ids stay unique even within one millisecond.
func newID(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			// crypto/rand failing is unrecoverable for id generation.
			panic(fmt.Sprintf("taskstore: rand: %v", err))
		}
		suffix[i] = idAlphabet[n.Int64()]
	}
	return fmt.Sprintf("task_%d_%s", now.UnixMilli(), suffix)
}
