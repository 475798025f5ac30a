package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListSkills handles GET /api/skills.
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"skills": h.deps.Skills.ListAll()})
}

// SkillContent handles GET /api/skills/{name}.
func (h *Handler) SkillContent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	content, err := h.deps.Skills.ReadContent(name)
	if err != nil {
		writeError(w, err, "skill")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "content": content})
}

// SaveSkillRequest is the request body for PUT /api/skills/{name}.
type SaveSkillRequest struct {
	Content *string `json:"content"`
}

// SaveSkill handles PUT /api/skills/{name}. Only existing skills can be
// written; the store picks the first writable candidate in priority order.
func (h *Handler) SaveSkill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	name := chi.URLParam(r, "name")

	var req SaveSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	if err := h.deps.Skills.WriteContent(name, *req.Content); err != nil {
		writeError(w, err, "skill")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
