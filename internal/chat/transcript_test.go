package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/state"
)

func testTranscript(t *testing.T) *Transcript {
	t.Helper()
	dir, err := state.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewTranscript(dir)
}

func TestListEmptyIsNotNil(t *testing.T) {
	tr := testTranscript(t)
	msgs, err := tr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("msgs = %v, want empty non-nil slice", msgs)
	}
}

func TestAppendAndList(t *testing.T) {
	tr := testTranscript(t)
	fixed := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	u := tr.newMessage(models.RoleUser, "hi")
	a := tr.newMessage(models.RoleAssistant, "hello")
	if u.ID != fmt.Sprintf("msg_%d_u", fixed.UnixMilli()) {
		t.Errorf("user id = %q", u.ID)
	}
	if a.ID != fmt.Sprintf("msg_%d_a", fixed.UnixMilli()) {
		t.Errorf("assistant id = %q", a.ID)
	}
	if u.Timestamp != "2026-08-31T09:30:00Z" {
		t.Errorf("timestamp = %q", u.Timestamp)
	}

	all, err := tr.Append(u, a)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(all) != 2 || all[0].Role != models.RoleUser || all[1].Role != models.RoleAssistant {
		t.Errorf("transcript = %+v", all)
	}

	got, err := tr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Content != "hi" {
		t.Errorf("persisted = %+v", got)
	}
}

func TestAppendCapsTranscript(t *testing.T) {
	tr := testTranscript(t)

	for i := 0; i < TranscriptCap+20; i++ {
		msg := tr.newMessage(models.RoleUser, fmt.Sprintf("m%d", i))
		if _, err := tr.Append(msg); err != nil {
			t.Fatal(err)
		}
	}

	got, err := tr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != TranscriptCap {
		t.Fatalf("len = %d, want %d", len(got), TranscriptCap)
	}
	// Oldest entries fell off; the newest is last.
	if got[0].Content != "m20" {
		t.Errorf("first = %q, want m20", got[0].Content)
	}
	if got[len(got)-1].Content != fmt.Sprintf("m%d", TranscriptCap+19) {
		t.Errorf("last = %q", got[len(got)-1].Content)
	}
}

func TestClear(t *testing.T) {
	tr := testTranscript(t)
	if _, err := tr.Append(tr.newMessage(models.RoleUser, "x")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := tr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("transcript after clear = %+v", got)
	}
	// Clearing an already-empty transcript is fine.
	if err := tr.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}
