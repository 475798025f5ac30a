package sysinfo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fakeSampler(t *testing.T, meminfo, loadavg string, cmdOut map[string]string) *Sampler {
	t.Helper()
	dir := t.TempDir()
	s := &Sampler{
		meminfoPath: filepath.Join(dir, "meminfo"),
		loadavgPath: filepath.Join(dir, "loadavg"),
		runCommand: func(_ context.Context, name string, _ ...string) ([]byte, error) {
			out, ok := cmdOut[name]
			if !ok {
				return nil, errors.New("command failed")
			}
			return []byte(out), nil
		},
	}
	if meminfo != "" {
		_ = os.WriteFile(s.meminfoPath, []byte(meminfo), 0o644)
	}
	if loadavg != "" {
		_ = os.WriteFile(s.loadavgPath, []byte(loadavg), 0o644)
	}
	return s
}

func TestCPU(t *testing.T) {
	s := fakeSampler(t, "", "", map[string]string{
		"top": "top - 10:00:00 up 1 day\n%Cpu(s): 12.5 us,  3.1 sy\n",
	})
	if got := s.CPU(context.Background()); got != "12.5%" {
		t.Errorf("CPU = %q", got)
	}
}

func TestCPUFailure(t *testing.T) {
	s := fakeSampler(t, "", "", nil)
	if got := s.CPU(context.Background()); got != Placeholder {
		t.Errorf("CPU on failure = %q, want placeholder", got)
	}
}

func TestRAM(t *testing.T) {
	s := fakeSampler(t, "MemTotal:       8388608 kB\nMemAvailable:   4194304 kB\n", "", nil)
	if got := s.RAM(); got != "4.0/8.0 GB (50%)" {
		t.Errorf("RAM = %q", got)
	}
}

func TestRAMMissingFile(t *testing.T) {
	s := fakeSampler(t, "", "", nil)
	if got := s.RAM(); got != Placeholder {
		t.Errorf("RAM = %q, want placeholder", got)
	}
}

func TestDisk(t *testing.T) {
	s := fakeSampler(t, "", "", map[string]string{
		"df": "Filesystem  Size  Used Avail Use% Mounted on\n/dev/sda1   100G   42G   58G  42% /\n",
	})
	if got := s.Disk(context.Background()); got != "42G/100G (42%)" {
		t.Errorf("Disk = %q", got)
	}
}

func TestLoadAvg(t *testing.T) {
	s := fakeSampler(t, "", "0.52 0.61 0.70 1/234 5678\n", nil)
	if got := s.LoadAvg(); got != "0.52 / 0.61 / 0.70" {
		t.Errorf("LoadAvg = %q", got)
	}
}

func TestMemorySize(t *testing.T) {
	root := t.TempDir()
	mk := func(rel string, size int) {
		t.Helper()
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mk("memory/facts.md", 100)
	mk(".learnings/fix.md", 200)
	mk("notes/todo.md", 300)
	mk("AGENT.md", 400)
	mk("ignored.txt", 999)
	mk("docs/deep.md", 999) // not a memory dir, not root-level

	if got := MemorySize(root); got != "1000 B" {
		t.Errorf("MemorySize = %q, want 1000 B", got)
	}
}

func TestMemorySizeMissingRoot(t *testing.T) {
	if got := MemorySize(filepath.Join(t.TempDir(), "nope")); got != "0 B" {
		t.Errorf("MemorySize = %q, want 0 B", got)
	}
}

func TestFormatUptime(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "0m"},
		{17 * time.Minute, "17m"},
		{3*time.Hour + 17*time.Minute, "3h 17m"},
		{50*time.Hour + 5*time.Minute, "2d 2h 5m"},
		{48 * time.Hour, "2d 0m"},
	}
	for _, c := range cases {
		start := now.Add(-c.ago).UnixMilli()
		if got := FormatUptime(start, now); got != c.want {
			t.Errorf("FormatUptime(-%v) = %q, want %q", c.ago, got, c.want)
		}
	}

	// A start in the future clamps to zero.
	if got := FormatUptime(now.Add(time.Hour).UnixMilli(), now); got != "0m" {
		t.Errorf("future start = %q", got)
	}
}

func TestVersion(t *testing.T) {
	now := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	if got := Version(now); got != "2026.08.31" {
		t.Errorf("Version = %q", got)
	}
}
