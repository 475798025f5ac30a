// Package skills discovers agent skill directories across an ordered list
// of named providers and reads/writes their marker files.
//
// A skill is any subdirectory of a provider directory; it is "active" when
// the SKILL.md marker exists directly inside it. Providers are scanned in
// declaration order and merged by name with an explicit rule, so priority
// is a stated parameter rather than call-order-implicit behavior.
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// MarkerFile defines a skill directory as active.
const MarkerFile = "SKILL.md"

// descriptionLimit caps the extracted description length.
const descriptionLimit = 200

// MergeRule states how duplicate skill names across providers resolve.
type MergeRule int

const (
	// FirstWins keeps the occurrence from the earliest provider. With the
	// default provider order (custom before system) this makes
	// user-writable skills override installed ones.
	FirstWins MergeRule = iota
	// LastWins keeps the occurrence from the latest provider.
	LastWins
)

// Provider is one named group of candidate skill directories.
type Provider struct {
	Name string
	Type string // models.SkillCustom or models.SkillSystem
	Dirs []string
}

// Scanner walks providers in order.
type Scanner struct {
	providers []Provider
	merge     MergeRule
}

// Options configures search-path construction.
type Options struct {
	Home       string   // home directory; defaults to os.UserHomeDir
	CustomPath string   // extra custom directory, highest priority
	SystemPath string   // extra system directory, highest system priority
	Packages   []string // package names probed in the npx cache and global installs
}

// New builds a scanner with the default provider layout: the custom group
// (user-writable) ahead of the system group, merged first-wins.
func New(opts Options) *Scanner {
	home := opts.Home
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		} else {
			home = "/root"
		}
	}

	var custom []string
	if opts.CustomPath != "" {
		custom = append(custom, opts.CustomPath)
	}
	custom = append(custom,
		filepath.Join(home, "agent", "skills"),
		filepath.Join(home, ".agent", "skills"),
	)

	var system []string
	if opts.SystemPath != "" {
		system = append(system, opts.SystemPath)
	}
	system = append(system, npxSkillDirs(home, opts.Packages)...)
	for _, pkg := range opts.Packages {
		system = append(system,
			filepath.Join("/usr/lib/node_modules", pkg, "skills"),
			filepath.Join("/usr/local/lib/node_modules", pkg, "skills"),
		)
	}

	return &Scanner{
		providers: []Provider{
			{Name: "custom", Type: models.SkillCustom, Dirs: custom},
			{Name: "system", Type: models.SkillSystem, Dirs: system},
		},
		merge: FirstWins,
	}
}

// NewWithProviders builds a scanner from an explicit provider list and
// merge rule; used by tests and non-default layouts.
func NewWithProviders(providers []Provider, merge MergeRule) *Scanner {
	return &Scanner{providers: providers, merge: merge}
}

// npxSkillDirs probes the ephemeral npx cache: one extra directory level
// of content hashes, each possibly holding an installed package.
func npxSkillDirs(home string, packages []string) []string {
	npxDir := filepath.Join(home, ".npm", "_npx")
	hashes, err := os.ReadDir(npxDir)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, hash := range hashes {
		if !hash.IsDir() {
			continue
		}
		for _, pkg := range packages {
			dir := filepath.Join(npxDir, hash.Name(), "node_modules", pkg, "skills")
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// ListAll scans every provider and merges by skill name. Unreadable
// candidate directories contribute nothing.
func (s *Scanner) ListAll() []models.Skill {
	seen := make(map[string]int)
	var out []models.Skill
	for _, p := range s.providers {
		for _, dir := range p.Dirs {
			for _, skill := range scanDir(dir, p.Type) {
				if idx, dup := seen[skill.Name]; dup {
					if s.merge == LastWins {
						out[idx] = skill
					}
					continue
				}
				seen[skill.Name] = len(out)
				out = append(out, skill)
			}
		}
	}
	if out == nil {
		out = []models.Skill{}
	}
	return out
}

func scanDir(dir, skillType string) []models.Skill {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []models.Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		marker := filepath.Join(dir, name, MarkerFile)

		active := false
		description := ""
		if data, err := os.ReadFile(marker); err == nil {
			active = true
			description = extractDescription(string(data))
		}

		var addedDate *string
		if info, err := entry.Info(); err == nil {
			d := info.ModTime().UTC().Format("2006-01-02")
			addedDate = &d
		}

		out = append(out, models.Skill{
			ID:          fmt.Sprintf("skill_%s_%s", skillType, name),
			Name:        name,
			Type:        skillType,
			Active:      active,
			Description: description,
			AddedDate:   addedDate,
			UsageCount:  nil,
		})
	}
	return out
}

// extractDescription takes the first line that is not blank, a heading, or
// a front-matter delimiter, capped at 200 characters.
func extractDescription(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") {
			continue
		}
		desc := strings.TrimSpace(line)
		if len(desc) > descriptionLimit {
			desc = desc[:descriptionLimit]
		}
		return desc
	}
	return ""
}

// safeName rejects skill names that would traverse out of a provider
// directory once joined. Rejections read as not-found.
func safeName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("skills: %q: %w", name, apperr.ErrNotFound)
	}
	return nil
}

// ReadContent returns the marker file of the named skill, searching
// providers in priority order.
func (s *Scanner) ReadContent(name string) (string, error) {
	if err := safeName(name); err != nil {
		return "", err
	}
	for _, p := range s.providers {
		for _, dir := range p.Dirs {
			data, err := os.ReadFile(filepath.Join(dir, name, MarkerFile))
			if err == nil {
				return string(data), nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				continue
			}
		}
	}
	return "", fmt.Errorf("skills: %s: %w", name, apperr.ErrNotFound)
}

// WriteContent replaces the marker file of an existing skill. Candidate
// directories are tried in the same priority order as discovery; the write
// lands on the first existing marker. Skills are never created here.
func (s *Scanner) WriteContent(name, content string) error {
	if err := safeName(name); err != nil {
		return err
	}
	found := false
	for _, p := range s.providers {
		for _, dir := range p.Dirs {
			marker := filepath.Join(dir, name, MarkerFile)
			if _, err := os.Stat(marker); err != nil {
				continue
			}
			found = true
			if err := os.WriteFile(marker, []byte(content), 0o644); err == nil {
				return nil
			}
			// Read-only install location; try the next candidate.
		}
	}
	if !found {
		return fmt.Errorf("skills: %s: %w", name, apperr.ErrNotFound)
	}
	return fmt.Errorf("skills: %s: %w", name, apperr.ErrUnwritable)
}
