package taskstore

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/state"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir, err := state.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(dir)
}

func TestCreateDefaults(t *testing.T) {
	s := testStore(t)
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	task, err := s.Create(CreateInput{Title: "write report"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Status != models.StatusOpen {
		t.Errorf("status = %q, want open", task.Status)
	}
	if task.Date != "2026-08-31" {
		t.Errorf("date = %q, want today", task.Date)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.Category != models.CategoryOther {
		t.Errorf("category = %q, want other", task.Category)
	}
	if task.Assignee != models.AssigneeAgent {
		t.Errorf("assignee = %q, want agent", task.Assignee)
	}
	if task.Deadline != nil {
		t.Errorf("deadline = %v, want nil", *task.Deadline)
	}
	if task.CreatedAt != "2026-08-31T12:00:00Z" {
		t.Errorf("createdAt = %q", task.CreatedAt)
	}
	if !strings.HasPrefix(task.ID, "task_1788177600000_") {
		t.Errorf("id = %q, want timestamp prefix", task.ID)
	}
}

func TestCreateEmptyTitle(t *testing.T) {
	s := testStore(t)
	if _, err := s.Create(CreateInput{}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty title error = %v, want ErrInvalid", err)
	}
}

func TestIDsUniqueWithinSameMillisecond(t *testing.T) {
	s := testStore(t)
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		task, err := s.Create(CreateInput{Title: "t"})
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[task.ID]; dup {
			t.Fatalf("duplicate id %q", task.ID)
		}
		seen[task.ID] = struct{}{}
	}
}

func TestListFiltersConjunction(t *testing.T) {
	s := testStore(t)
	mk := func(title, status, date, assignee string) {
		t.Helper()
		task, err := s.Create(CreateInput{Title: title, Date: date, Assignee: assignee})
		if err != nil {
			t.Fatal(err)
		}
		if status != models.StatusOpen {
			if _, err := s.Apply(task.ID, Update{Status: &status}); err != nil {
				t.Fatal(err)
			}
		}
	}
	mk("a", "open", "2026-08-30", "agent")
	mk("b", "done", "2026-08-30", "agent")
	mk("c", "done", "2026-08-31", "agent")
	mk("d", "done", "2026-08-30", "me")

	got, err := s.List(Filters{Status: "done", Date: "2026-08-30", Assignee: "agent"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "b" {
		t.Errorf("filtered = %+v, want just b", got)
	}

	all, err := s.List(Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("unfiltered count = %d, want 4", len(all))
	}
}

func TestListMissingFileIsEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.List(Filters{})
	if err != nil {
		t.Fatalf("List on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d tasks, want 0", len(got))
	}
}

func TestCorruptFileSurfaces(t *testing.T) {
	dir, err := state.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir.Path(state.TasksFile), []byte("oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(dir)
	if _, err := s.List(Filters{}); !errors.Is(err, apperr.ErrCorrupt) {
		t.Errorf("corrupt list error = %v, want ErrCorrupt", err)
	}
	if _, err := s.Create(CreateInput{Title: "x"}); !errors.Is(err, apperr.ErrCorrupt) {
		t.Errorf("corrupt create error = %v, want ErrCorrupt", err)
	}
}

func TestApply(t *testing.T) {
	s := testStore(t)
	task, err := s.Create(CreateInput{Title: "before"})
	if err != nil {
		t.Fatal(err)
	}

	title := "after"
	status := models.StatusInProgress
	got, err := s.Apply(task.ID, Update{Title: &title, Status: &status})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Title != "after" || got.Status != models.StatusInProgress {
		t.Errorf("applied = %+v", got)
	}

	// Changes persisted.
	all, err := s.List(Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Title != "after" {
		t.Errorf("persisted title = %q", all[0].Title)
	}
}

func TestApplyDeadlineClear(t *testing.T) {
	s := testStore(t)
	deadline := "2026-09-01T00:00:00Z"
	task, err := s.Create(CreateInput{Title: "t", Deadline: &deadline})
	if err != nil {
		t.Fatal(err)
	}

	var cleared *string
	got, err := s.Apply(task.ID, Update{Deadline: &cleared})
	if err != nil {
		t.Fatal(err)
	}
	if got.Deadline != nil {
		t.Errorf("deadline = %v, want nil", *got.Deadline)
	}
}

func TestApplyEmptyUpdateIdempotent(t *testing.T) {
	s := testStore(t)
	if _, err := s.Create(CreateInput{Title: "t"}); err != nil {
		t.Fatal(err)
	}

	before, err := os.ReadFile(s.dir.Path(state.TasksFile))
	if err != nil {
		t.Fatal(err)
	}

	all, _ := s.List(Filters{})
	if _, err := s.Apply(all[0].ID, Update{}); err != nil {
		t.Fatalf("empty Apply: %v", err)
	}

	after, err := os.ReadFile(s.dir.Path(state.TasksFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("empty update changed the backing file")
	}
}

func TestApplyUnknownID(t *testing.T) {
	s := testStore(t)
	title := "x"
	if _, err := s.Apply("task_0_zzzzzz", Update{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	a, _ := s.Create(CreateInput{Title: "a"})
	b, _ := s.Create(CreateInput{Title: "b"})

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := s.List(Filters{})
	if len(all) != 1 || all[0].ID != b.ID {
		t.Errorf("remaining = %+v", all)
	}

	if err := s.Delete(a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func TestStatsCurrentTaskIsFirstInProgress(t *testing.T) {
	s := testStore(t)
	mk := func(title, status string) {
		t.Helper()
		task, err := s.Create(CreateInput{Title: title})
		if err != nil {
			t.Fatal(err)
		}
		if status != models.StatusOpen {
			if _, err := s.Apply(task.ID, Update{Status: &status}); err != nil {
				t.Fatal(err)
			}
		}
	}
	mk("one", "done")
	mk("two", "in_progress")
	mk("three", "in_progress")
	mk("four", "open")

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.Completed != 1 {
		t.Errorf("completed = %d, want 1", stats.Completed)
	}
	if stats.CurrentTask == nil || *stats.CurrentTask != "two" {
		t.Errorf("currentTask = %v, want two", stats.CurrentTask)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := testStore(t)
	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 || stats.Completed != 0 || stats.CurrentTask != nil {
		t.Errorf("stats = %+v, want zero value", stats)
	}
}
