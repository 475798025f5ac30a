// Package sysinfo samples host and agent metrics for the status endpoint.
//
// Shell-outs are bounded by short timeouts; on any failure the sampler
// returns a placeholder instead of an error so one slow command can never
// hang the status response.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/workspace"
)

// Placeholder is returned when a sample cannot be taken.
const Placeholder = "—"

// commandTimeout bounds each shell-out.
const commandTimeout = 3 * time.Second

// memoryDirs are the workspace directories whose file sizes count toward
// the agent's memory footprint, along with root-level Markdown files.
var memoryDirs = []string{"memory", ".learnings", "notes"}

// Sampler reads host metrics. The proc paths are variable for tests.
type Sampler struct {
	meminfoPath string
	loadavgPath string
	runCommand  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a sampler using the live /proc filesystem and exec.
func New() *Sampler {
	return &Sampler{
		meminfoPath: "/proc/meminfo",
		loadavgPath: "/proc/loadavg",
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// MemorySize sums the sizes of files directly inside the memory
// directories plus root-level .md files, rendered as a human string.
func MemorySize(workspaceRoot string) string {
	var total int64
	for _, dir := range memoryDirs {
		entries, err := os.ReadDir(filepath.Join(workspaceRoot, dir))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if info, err := entry.Info(); err == nil && info.Mode().IsRegular() {
				total += info.Size()
			}
		}
	}
	entries, err := os.ReadDir(workspaceRoot)
	if err == nil {
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			if info, err := entry.Info(); err == nil && info.Mode().IsRegular() {
				total += info.Size()
			}
		}
	}
	return workspace.FormatSize(total)
}

// CPU samples overall CPU usage via top in batch mode.
func (s *Sampler) CPU(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := s.runCommand(ctx, "top", "-bn1")
	if err != nil {
		return Placeholder
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "Cpu(s)") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		if v, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64); err == nil {
			return fmt.Sprintf("%.1f%%", v)
		}
		break
	}
	return Placeholder
}

// RAM reports used/total memory from /proc/meminfo.
func (s *Sampler) RAM() string {
	data, err := os.ReadFile(s.meminfoPath)
	if err != nil {
		return Placeholder
	}
	var totalKB, availKB int64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseInt(fields[1], 10, 64)
		case "MemAvailable:":
			availKB, _ = strconv.ParseInt(fields[1], 10, 64)
		}
	}
	if totalKB == 0 {
		return Placeholder
	}
	usedKB := totalKB - availKB
	const gb = 1 << 20 // KiB per GiB
	pct := float64(usedKB) / float64(totalKB) * 100
	return fmt.Sprintf("%.1f/%.1f GB (%.0f%%)", float64(usedKB)/gb, float64(totalKB)/gb, pct)
}

// Disk reports root filesystem usage via df.
func (s *Sampler) Disk(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := s.runCommand(ctx, "df", "-h", "/")
	if err != nil {
		return Placeholder
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return Placeholder
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 5 {
		return Placeholder
	}
	return fmt.Sprintf("%s/%s (%s)", fields[2], fields[1], fields[4])
}

// LoadAvg reports the 1/5/15-minute load averages.
func (s *Sampler) LoadAvg() string {
	data, err := os.ReadFile(s.loadavgPath)
	if err != nil {
		return Placeholder
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return Placeholder
	}
	return fmt.Sprintf("%s / %s / %s", fields[0], fields[1], fields[2])
}

// FormatUptime renders the time since startMillis as "2d 3h 17m".
func FormatUptime(startMillis int64, now time.Time) string {
	diff := now.UnixMilli() - startMillis
	if diff < 0 {
		diff = 0
	}
	days := diff / 86400000
	hours := (diff % 86400000) / 3600000
	mins := (diff % 3600000) / 60000

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", mins))
	return strings.Join(parts, " ")
}

// Version derives the date-based version string ("2026.08.31").
func Version(now time.Time) string {
	return now.UTC().Format("2006.01.02")
}
