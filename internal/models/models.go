// Package models defines the domain types for Dagaz.
package models

// Task statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task assignees.
const (
	AssigneeAgent = "agent"
	AssigneeMe    = "me"
)

// Task is a single entry in the task store. Deadline is an ISO instant or
// empty; Date is an ISO day (YYYY-MM-DD).
type Task struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	Date      string  `json:"date"`
	Deadline  *string `json:"deadline"`
	Priority  string  `json:"priority"`
	Category  string  `json:"category"`
	Assignee  string  `json:"assignee"`
	CreatedAt string  `json:"createdAt"`
}

// TaskStats is the aggregate view surfaced on the status endpoint.
// CurrentTask is the title of the first in-progress task in insertion
// order, or nil when nothing is in progress.
type TaskStats struct {
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	CurrentTask *string `json:"currentTask"`
}

// File categories, in predicate priority order.
const (
	CategoryCore      = "core"
	CategoryNotes     = "notes"
	CategoryLearnings = "learnings"
	CategoryMemory    = "memory"
	CategoryConfigs   = "configs"
	CategoryScripts   = "scripts"
	CategoryOther     = "other"
)

// AgentFile is a scanner result; never persisted. Path is
// workspace-relative with forward slashes, Size is a human string.
type AgentFile struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Category string `json:"category"`
	Size     string `json:"size"`
	Modified string `json:"modified"`
}

// Skill types.
const (
	SkillSystem = "system"
	SkillCustom = "custom"
)

// Skill describes a discovered skill directory. Active means the marker
// file (SKILL.md) exists. UsageCount is never tracked and stays nil.
type Skill struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Active      bool    `json:"active"`
	Description string  `json:"description"`
	AddedDate   *string `json:"addedDate"`
	UsageCount  *int    `json:"usageCount"`
}

// Process is a read-only view of an externally maintained scheduled job.
type Process struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Schedule    string  `json:"schedule"`
	Status      string  `json:"status"`
	LastRun     *string `json:"lastRun"`
	NextRun     *string `json:"nextRun"`
	Description string  `json:"description"`
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one transcript entry.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// DashConfig is the persisted dashboard settings singleton. StartedAt is
// Unix milliseconds of first startup.
type DashConfig struct {
	AgentName       string `json:"agentName"`
	RefreshInterval int    `json:"refreshInterval"`
	ThemeIndex      int    `json:"themeIndex"`
	WorkspacePath   string `json:"workspacePath"`
	StartedAt       int64  `json:"startedAt"`
}
