// Package workspace scans the agent's working directory and guards all
// content access behind a resolve-then-prefix containment check.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// maxDepth bounds the recursive walk: files deeper than three directory
// levels below the root are never listed.
const maxDepth = 3

// credentialsDir is never listed, read, or deleted.
const credentialsDir = ".credentials"

// excludedDirs are never descended into.
var excludedDirs = map[string]struct{}{
	credentialsDir: {},
	".venv":        {},
	"node_modules": {},
	"__pycache__":  {},
	".git":         {},
	".next":        {},
	"tmp":          {},
	".cache":       {},
	".agent-dash":  {},
}

// excludedExts are binary/compiled/archive extensions that are never listed.
var excludedExts = map[string]struct{}{
	".py": {}, ".pyc": {}, ".pyo": {}, ".so": {}, ".o": {}, ".a": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {},
}

// listedExts is the inclusion allow-list; extensionless files are also listed.
var listedExts = map[string]struct{}{
	".md": {}, ".txt": {}, ".json": {}, ".yaml": {}, ".yml": {}, ".toml": {},
}

var configExts = map[string]struct{}{
	".json": {}, ".yaml": {}, ".yml": {}, ".toml": {},
}

var scriptExts = map[string]struct{}{
	".sh": {}, ".bash": {}, ".zsh": {}, ".py": {}, ".js": {}, ".ts": {},
}

// Upload limits.
const MaxUploadSize = 10 << 20

var uploadExts = map[string]struct{}{
	".md": {}, ".txt": {}, ".json": {}, ".yaml": {}, ".yml": {},
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Scanner walks a workspace root. Results are recomputed on every scan;
// nothing is cached.
type Scanner struct {
	root string
}

// New resolves the workspace root. The root does not have to exist yet;
// scanning a missing root yields an empty list.
func New(root string) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root: %w", err)
	}
	return &Scanner{root: abs}, nil
}

// Root returns the absolute workspace root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan lists workspace files sorted by name, byte-wise ascending.
// Per-file stat failures drop the file; unreadable directories drop the
// subtree. Neither aborts the scan.
func (s *Scanner) Scan() []models.AgentFile {
	var results []models.AgentFile
	s.scanDir(s.root, 0, &results)
	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results
}

func (s *Scanner) scanDir(dir string, depth int, results *[]models.AgentFile) {
	if depth > maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		// Hidden entries are skipped at the root, except the learnings
		// directory which the agent writes under a dot prefix.
		if depth == 0 && strings.HasPrefix(name, ".") && name != ".learnings" {
			continue
		}
		if _, excluded := excludedDirs[name]; excluded {
			continue
		}

		full := filepath.Join(dir, name)
		if entry.IsDir() {
			s.scanDir(full, depth+1, results)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if _, excluded := excludedExts[ext]; excluded {
			continue
		}
		if ext != "" {
			if _, listed := listedExts[ext]; !listed {
				continue
			}
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		*results = append(*results, models.AgentFile{
			Name:     name,
			Path:     rel,
			Category: categorize(rel, name),
			Size:     FormatSize(info.Size()),
			Modified: info.ModTime().UTC().Format(time.RFC3339),
		})
	}
}

// categorize maps a workspace-relative path to a category. Predicates are
// evaluated top to bottom; the first match wins.
func categorize(rel, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case strings.HasPrefix(rel, "notes/"):
		return models.CategoryNotes
	case strings.HasPrefix(rel, ".learnings/") || strings.HasPrefix(rel, "learnings/"):
		return models.CategoryLearnings
	case strings.HasPrefix(rel, "memory/"):
		return models.CategoryMemory
	}
	if _, ok := configExts[ext]; ok {
		return models.CategoryConfigs
	}
	if _, ok := scriptExts[ext]; ok {
		return models.CategoryScripts
	}
	if !strings.Contains(rel, "/") && strings.HasSuffix(rel, ".md") {
		return models.CategoryCore
	}
	return models.CategoryOther
}

// safePath resolves rel against the workspace root and rejects any result
// that escapes it or touches the credentials directory. Rejections are
// apperr.ErrNotFound so existence never leaks.
func (s *Scanner) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("workspace: %s: %w", rel, apperr.ErrNotFound)
	}
	abs, err := filepath.Abs(filepath.Join(s.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("workspace: resolve %s: %w", rel, apperr.ErrNotFound)
	}
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("workspace: %s: %w", rel, apperr.ErrNotFound)
	}
	if strings.Contains(abs, credentialsDir) {
		return "", fmt.Errorf("workspace: %s: %w", rel, apperr.ErrNotFound)
	}
	return abs, nil
}

// ReadContent returns the contents of a contained workspace file.
func (s *Scanner) ReadContent(rel string) (string, error) {
	abs, err := s.safePath(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("workspace: %s: %w", rel, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("workspace: read %s: %w", rel, err)
	}
	return string(data), nil
}

// Delete removes a contained workspace file.
func (s *Scanner) Delete(rel string) error {
	abs, err := s.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("workspace: %s: %w", rel, apperr.ErrNotFound)
		}
		return fmt.Errorf("workspace: delete %s: %w", rel, err)
	}
	return nil
}

// Upload stores data under uploads/ after sanitizing the file name.
// Returns the stored name.
func (s *Scanner) Upload(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := uploadExts[ext]; !ok {
		return "", fmt.Errorf("workspace: extension %q not allowed: %w", ext, apperr.ErrInvalid)
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("workspace: file too large: %w", apperr.ErrInvalid)
	}
	safe := unsafeNameRe.ReplaceAllString(filepath.Base(name), "_")
	if safe == "" || safe == "." || strings.Contains(safe, "..") {
		return "", fmt.Errorf("workspace: invalid filename: %w", apperr.ErrInvalid)
	}

	dir := filepath.Join(s.root, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("workspace: mkdir uploads: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, safe), data, 0o644); err != nil {
		return "", fmt.Errorf("workspace: write upload: %w", err)
	}
	return safe, nil
}

// FormatSize renders a byte count as a human string ("1.5 KB").
func FormatSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
