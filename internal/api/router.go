package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/chat"
	"github.com/starford/dagaz/internal/proccache"
	"github.com/starford/dagaz/internal/settings"
	"github.com/starford/dagaz/internal/skills"
	"github.com/starford/dagaz/internal/sysinfo"
	"github.com/starford/dagaz/internal/taskstore"
	"github.com/starford/dagaz/internal/usage"
	"github.com/starford/dagaz/internal/workspace"
)

// Deps carries everything the handlers need.
type Deps struct {
	Tasks     *taskstore.Store
	Workspace *workspace.Scanner
	Skills    *skills.Scanner
	Processes *proccache.Reader
	Settings  *settings.Store
	Relay     *chat.Relay
	Sampler   *sysinfo.Sampler
	Usage     *usage.Meterer
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(deps Deps, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tasks CRUD.
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks", h.CreateTask)
	r.Patch("/tasks/{id}", h.UpdateTask)
	r.Delete("/tasks/{id}", h.DeleteTask)

	// Workspace files.
	r.Get("/files", h.ListFiles)
	r.Get("/files/content", h.FileContent)
	r.Post("/files/upload", h.UploadFile)
	r.Delete("/files/*", h.DeleteFile)

	// Skills.
	r.Get("/skills", h.ListSkills)
	r.Get("/skills/{name}", h.SkillContent)
	r.Put("/skills/{name}", h.SaveSkill)

	// Scheduled jobs (read-only cache view).
	r.Get("/processes", h.ListProcesses)

	// Dashboard settings.
	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.PatchSettings)

	// Chat relay + transcript.
	r.Get("/chat", h.GetChat)
	r.Post("/chat", h.PostChat)
	r.Delete("/chat", h.ClearChat)

	// Agent/system status and usage metering.
	r.Get("/status", h.Status)
	r.Get("/usage", h.Usage)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// Handler holds API route handlers.
type Handler struct {
	deps Deps
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}
