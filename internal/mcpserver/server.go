// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the dashboard's stores and scanners as tools over stdio, so the
// agent itself can inspect and manage its task list and workspace.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/settings"
	"github.com/starford/dagaz/internal/skills"
	"github.com/starford/dagaz/internal/sysinfo"
	"github.com/starford/dagaz/internal/taskstore"
	"github.com/starford/dagaz/internal/workspace"
)

// Server wraps the MCP server with dashboard tools.
type Server struct {
	mcp       *server.MCPServer
	tasks     *taskstore.Store
	workspace *workspace.Scanner
	skills    *skills.Scanner
	settings  *settings.Store
}

// New creates a new MCP server with all dashboard tools registered.
func New(tasks *taskstore.Store, ws *workspace.Scanner, sk *skills.Scanner, st *settings.Store) *Server {
	s := &Server{tasks: tasks, workspace: ws, skills: sk, settings: st}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List dashboard tasks, optionally filtered by status, date, or assignee."),
		mcp.WithString("status", mcp.Description("Filter: open, in_progress, or done")),
		mcp.WithString("date", mcp.Description("Filter: ISO day (YYYY-MM-DD)")),
		mcp.WithString("assignee", mcp.Description("Filter: agent or me")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task on the dashboard."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("priority", mcp.Description("high, medium, or low (default medium)")),
		mcp.WithString("category", mcp.Description("Free-form category (default other)")),
		mcp.WithString("date", mcp.Description("ISO day the task belongs to (default today)")),
	), s.createTask)

	s.mcp.AddTool(mcp.NewTool("update_task_status",
		mcp.WithDescription("Move a task to a new status."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("open, in_progress, or done")),
	), s.updateTaskStatus)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List workspace files with their categories."),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read a workspace file by its relative path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path (e.g. notes/todo.md)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("list_skills",
		mcp.WithDescription("List discovered skills across custom and system search paths."),
	), s.listSkills)

	s.mcp.AddTool(mcp.NewTool("read_skill",
		mcp.WithDescription("Read a skill's SKILL.md marker file."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill directory name")),
	), s.readSkill)

	s.mcp.AddTool(mcp.NewTool("agent_status",
		mcp.WithDescription("Report agent name, uptime, and task totals."),
	), s.agentStatus)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f taskstore.Filters
	if v, err := req.RequireString("status"); err == nil {
		f.Status = v
	}
	if v, err := req.RequireString("date"); err == nil {
		f.Date = v
	}
	if v, err := req.RequireString("assignee"); err == nil {
		f.Assignee = v
	}
	tasks, err := s.tasks.List(f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tasks, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := taskstore.CreateInput{Title: strings.TrimSpace(title)}
	if v, err := req.RequireString("priority"); err == nil {
		in.Priority = v
	}
	if v, err := req.RequireString("category"); err == nil {
		in.Category = v
	}
	if v, err := req.RequireString("date"); err == nil {
		in.Date = v
	}
	task, err := s.tasks.Create(in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", task.ID)), nil
}

func (s *Server) updateTaskStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch status {
	case models.StatusOpen, models.StatusInProgress, models.StatusDone:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s", status)), nil
	}
	if _, err := s.tasks.Apply(id, taskstore.Update{Status: &status}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s -> %s", id, status)), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files := s.workspace.Scan()
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", f.Path, f.Category, f.Size)
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no files found"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.workspace.ReadContent(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) listSkills(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.skills.ListAll(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSkill(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.skills.ReadContent(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) agentStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := s.settings.Get()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := s.tasks.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	current := "none"
	if stats.CurrentTask != nil {
		current = *stats.CurrentTask
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"agent: %s\nuptime: %s\ntasks: %d total, %d done\ncurrent: %s",
		cfg.AgentName,
		sysinfo.FormatUptime(cfg.StartedAt, time.Now()),
		stats.Total, stats.Completed, current,
	)), nil
}
