package deps

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"zipp/internal/services"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestResolveEnginePrefersFirstAvailable(t *testing.T) {
	tmp := t.TempDir()
	bundled := filepath.Join(tmp, executableName("7zzs"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(bundled, script, 0o755); err != nil {
		t.Fatalf("write bundled stub: %v", err)
	}

	resolved, err := ResolveEngine([]string{filepath.Join(tmp, "missing-7zzs"), bundled, "7z"})
	if err != nil {
		t.Fatalf("ResolveEngine returned error: %v", err)
	}
	if resolved != bundled {
		t.Fatalf("expected %q, got %q", bundled, resolved)
	}
}

func TestResolveEngineFallsBackToPath(t *testing.T) {
	binDir := t.TempDir()
	sevenZip := filepath.Join(binDir, executableName("7z"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(sevenZip, script, 0o755); err != nil {
		t.Fatalf("write 7z stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	resolved, err := ResolveEngine([]string{"/nonexistent/7zzs", "7zz", "7z"})
	if err != nil {
		t.Fatalf("ResolveEngine returned error: %v", err)
	}
	if resolved != sevenZip {
		t.Fatalf("expected %q, got %q", sevenZip, resolved)
	}
}

func TestResolveEngineSkipsNonExecutable(t *testing.T) {
	tmp := t.TempDir()
	plain := filepath.Join(tmp, "7zzs")
	if err := os.WriteFile(plain, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("PATH", "")
	if runtime.GOOS == "windows" {
		t.Skip("executable bit not meaningful on windows")
	}
	if _, err := ResolveEngine([]string{plain}); err == nil {
		t.Fatal("expected non-executable candidate to be rejected")
	}
}

func TestCheckEngineNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	status := CheckEngine([]string{"7zz", "7z"})
	if status.Available {
		t.Fatal("expected engine resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when engine is unavailable")
	}
	if _, err := ResolveEngine([]string{"7zz"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveEngineRequiresCandidates(t *testing.T) {
	if _, err := ResolveEngine([]string{" ", ""}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration with no candidates, got %v", err)
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
