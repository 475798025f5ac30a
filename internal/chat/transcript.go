package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/state"
)

// TranscriptCap is the retention limit: every save keeps exactly the most
// recent entries, oldest-first.
const TranscriptCap = 100

// Transcript is the append-only, capped chat history.
type Transcript struct {
	mu  sync.Mutex
	dir *state.Dir
	now func() time.Time
}

// NewTranscript creates a transcript store over the given state directory.
func NewTranscript(dir *state.Dir) *Transcript {
	return &Transcript{dir: dir, now: time.Now}
}

func (t *Transcript) read() ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := t.dir.ReadJSON(state.ChatFile, &msgs)
	switch {
	case err == nil:
		return msgs, nil
	case errors.Is(err, apperr.ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// List returns the persisted transcript, oldest-first.
func (t *Transcript) List() ([]models.ChatMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgs, err := t.read()
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, nil
}

// Append adds messages and persists the trailing TranscriptCap entries.
// Returns the transcript after the append.
func (t *Transcript) Append(msgs ...models.ChatMessage) ([]models.ChatMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.read()
	if err != nil {
		return nil, err
	}
	all = append(all, msgs...)
	if len(all) > TranscriptCap {
		all = all[len(all)-TranscriptCap:]
	}
	if err := t.dir.WriteJSON(state.ChatFile, all); err != nil {
		return nil, err
	}
	return all, nil
}

// Clear removes the transcript file.
func (t *Transcript) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir.Remove(state.ChatFile)
}

// newMessage builds a transcript entry. The id keeps the historical
// msg_<unixms>_<role-initial> shape.
func (t *Transcript) newMessage(role, content string) models.ChatMessage {
	now := t.now()
	initial := "u"
	if role == models.RoleAssistant {
		initial = "a"
	}
	return models.ChatMessage{
		ID:        fmt.Sprintf("msg_%d_%s", now.UnixMilli(), initial),
		Role:      role,
		Content:   content,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
