package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/starford/dagaz/internal/models"
)

// chatHistoryWindow limits how much transcript a POST response carries.
const chatHistoryWindow = 50

// GetChat handles GET /api/chat: the persisted transcript plus which
// backend is active.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.deps.Relay.Transcript().List()
	if err != nil {
		writeError(w, err, "chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"backend":  h.deps.Relay.BackendName(),
	})
}

// PostChatRequest is the request body for POST /api/chat.
type PostChatRequest struct {
	Message string `json:"message"`
}

// PostChat handles POST /api/chat: relays the message to the agent and
// returns the assistant reply plus the trailing transcript.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req PostChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("message required"))
		return
	}

	reply, history, err := h.deps.Relay.Send(r.Context(), req.Message)
	if err != nil {
		writeError(w, err, "chat")
		return
	}
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}
	if history == nil {
		history = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": reply,
		"history": history,
	})
}

// ClearChat handles DELETE /api/chat.
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Relay.Transcript().Clear(); err != nil {
		writeError(w, err, "chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
