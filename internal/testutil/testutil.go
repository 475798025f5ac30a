// Package testutil provides shared test helpers for setting up state
// directories and workspaces.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/dagaz/internal/state"
	"github.com/starford/dagaz/internal/workspace"
)

// TestStateDir creates a temporary state directory.
func TestStateDir(t *testing.T) *state.Dir {
	t.Helper()
	dir, err := state.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

// TestWorkspace creates a temporary workspace directory with a scanner.
func TestWorkspace(t *testing.T) (string, *workspace.Scanner) {
	t.Helper()
	root := t.TempDir()
	scanner, err := workspace.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, scanner
}

// WriteFile writes a file under root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
