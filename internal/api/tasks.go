package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/taskstore"
)

// maxBodySize bounds mutation request bodies.
const maxBodySize = 1 << 20

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	Title    string  `json:"title"`
	Priority string  `json:"priority"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Deadline *string `json:"deadline"`
	Assignee string  `json:"assignee"`
}

// Validate checks the enumerated fields; empty optional fields default in
// the store.
func (r CreateTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Priority, validation.In(models.PriorityHigh, models.PriorityMedium, models.PriorityLow)),
		validation.Field(&r.Assignee, validation.In(models.AssigneeAgent, models.AssigneeMe)),
	)
}

// ListTasks handles GET /api/tasks with optional status/date/assignee
// filters combined as an exact-match conjunction.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.deps.Tasks.List(taskstore.Filters{
		Status:   q.Get("status"),
		Date:     q.Get("date"),
		Assignee: q.Get("assignee"),
	})
	if err != nil {
		writeError(w, err, "tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	task, err := h.deps.Tasks.Create(taskstore.CreateInput{
		Title:    req.Title,
		Priority: req.Priority,
		Category: req.Category,
		Date:     req.Date,
		Deadline: req.Deadline,
		Assignee: req.Assignee,
	})
	if err != nil {
		writeError(w, err, "task")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": task.ID})
}

// UpdateTask handles PATCH /api/tasks/{id}. Only allow-listed fields are
// applied; unknown fields in the body are silently ignored.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	id := chi.URLParam(r, "id")

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	u, err := buildUpdate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if _, err := h.deps.Tasks.Apply(id, u); err != nil {
		writeError(w, err, "task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// buildUpdate lifts the present allow-listed fields out of the raw body.
// Enumerated values are validated; null deadline clears the field.
func buildUpdate(raw map[string]json.RawMessage) (taskstore.Update, error) {
	var u taskstore.Update

	str := func(key string) (*string, error) {
		v, ok := raw[key]
		if !ok {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, validation.NewError("validation_invalid", key+" must be a string")
		}
		return &s, nil
	}

	var err error
	if u.Title, err = str("title"); err != nil {
		return u, err
	}
	if u.Status, err = str("status"); err != nil {
		return u, err
	}
	if u.Date, err = str("date"); err != nil {
		return u, err
	}
	if u.Priority, err = str("priority"); err != nil {
		return u, err
	}
	if u.Category, err = str("category"); err != nil {
		return u, err
	}
	if u.Assignee, err = str("assignee"); err != nil {
		return u, err
	}
	if v, ok := raw["deadline"]; ok {
		var dl *string
		if err := json.Unmarshal(v, &dl); err != nil {
			return u, validation.NewError("validation_invalid", "deadline must be a string or null")
		}
		u.Deadline = &dl
	}

	if u.Status != nil {
		if err := validation.Validate(*u.Status,
			validation.In(models.StatusOpen, models.StatusInProgress, models.StatusDone)); err != nil {
			return u, validation.NewError("validation_invalid", "status "+err.Error())
		}
	}
	if u.Priority != nil {
		if err := validation.Validate(*u.Priority,
			validation.In(models.PriorityHigh, models.PriorityMedium, models.PriorityLow)); err != nil {
			return u, validation.NewError("validation_invalid", "priority "+err.Error())
		}
	}
	if u.Assignee != nil {
		if err := validation.Validate(*u.Assignee,
			validation.In(models.AssigneeAgent, models.AssigneeMe)); err != nil {
			return u, validation.NewError("validation_invalid", "assignee "+err.Error())
		}
	}
	return u, nil
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.deps.Tasks.Delete(id); err != nil {
		writeError(w, err, "task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
