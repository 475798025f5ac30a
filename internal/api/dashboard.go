package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/starford/dagaz/internal/settings"
	"github.com/starford/dagaz/internal/sysinfo"
)

// ListProcesses handles GET /api/processes: a read-only view of the
// scheduled-job cache maintained by the agent runtime.
func (h *Handler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	procs, err := h.deps.Processes.List()
	if err != nil {
		writeError(w, err, "processes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"processes": procs})
}

// GetSettings handles GET /api/settings. StartedAt stays internal.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.deps.Settings.Get()
	if err != nil {
		writeError(w, err, "settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agentName":       cfg.AgentName,
		"refreshInterval": cfg.RefreshInterval,
		"themeIndex":      cfg.ThemeIndex,
		"workspacePath":   cfg.WorkspacePath,
	})
}

// PatchSettingsRequest carries the mutable settings fields.
type PatchSettingsRequest struct {
	AgentName       *string `json:"agentName"`
	RefreshInterval *int    `json:"refreshInterval"`
	ThemeIndex      *int    `json:"themeIndex"`
}

// PatchSettings handles PATCH /api/settings. The workspace path and start
// timestamp are not mutable through the API.
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req PatchSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if _, err := h.deps.Settings.Save(settings.Updates{
		AgentName:       req.AgentName,
		RefreshInterval: req.RefreshInterval,
		ThemeIndex:      req.ThemeIndex,
	}); err != nil {
		writeError(w, err, "settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// StatusResponse is the GET /api/status payload.
type StatusResponse struct {
	Name           string  `json:"name"`
	Version        string  `json:"version"`
	Uptime         string  `json:"uptime"`
	CurrentTask    *string `json:"currentTask"`
	MemorySize     string  `json:"memorySize"`
	TotalTasks     int     `json:"totalTasks"`
	CompletedTasks int     `json:"completedTasks"`
	CPU            string  `json:"cpu"`
	RAM            string  `json:"ram"`
	Disk           string  `json:"disk"`
	LoadAvg        string  `json:"loadAvg"`
}

// Status handles GET /api/status. Sampling failures degrade to
// placeholders inside the sampler; only store errors fail the request.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.deps.Settings.Get()
	if err != nil {
		writeError(w, err, "status")
		return
	}
	stats, err := h.deps.Tasks.Stats()
	if err != nil {
		writeError(w, err, "status")
		return
	}

	now := time.Now()
	writeJSON(w, http.StatusOK, StatusResponse{
		Name:           cfg.AgentName,
		Version:        sysinfo.Version(now),
		Uptime:         sysinfo.FormatUptime(cfg.StartedAt, now),
		CurrentTask:    stats.CurrentTask,
		MemorySize:     sysinfo.MemorySize(h.deps.Workspace.Root()),
		TotalTasks:     stats.Total,
		CompletedTasks: stats.Completed,
		CPU:            h.deps.Sampler.CPU(r.Context()),
		RAM:            h.deps.Sampler.RAM(),
		Disk:           h.deps.Sampler.Disk(r.Context()),
		LoadAvg:        h.deps.Sampler.LoadAvg(),
	})
}

// Usage handles GET /api/usage.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Usage.Report()
	if err != nil {
		writeError(w, err, "usage stats")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
