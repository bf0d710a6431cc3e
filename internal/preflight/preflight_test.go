package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"zipp/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryReadable_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if r := CheckDirectoryReadable("input", dir); !r.Passed {
		t.Fatalf("expected read-only dir to be readable: %s", r.Detail)
	}
	if r := CheckDirectoryAccess("output", dir); r.Passed {
		t.Fatal("expected read-only dir to fail write check")
	}
}

func TestCheckEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("7z"))
	if r := CheckEngine(cfg); !r.Passed {
		t.Fatalf("expected stubbed engine to resolve: %s", r.Detail)
	}

	cfg.Engine.Binary = "definitely-not-a-real-7z"
	cfg.Engine.FallbackBinaries = nil
	if r := CheckEngine(cfg); r.Passed {
		t.Fatal("expected missing engine to fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil, true); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_Targets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("7z"))
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	input := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing")

	results := RunAll(cfg, true,
		Target{Name: "Input directory", Path: input},
		Target{Name: "Output directory", Path: missing, Write: true},
		Target{Name: "Skipped", Path: ""},
	)
	if len(results) != 4 {
		t.Fatalf("expected engine, state, input and output checks, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Output directory" {
		t.Fatalf("expected only output to fail, got %+v", failed)
	}
}

func TestCheckSystemDepsIncludesEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("7z"))
	statuses := CheckSystemDeps(cfg)
	if len(statuses) == 0 || statuses[0].Name != "7-Zip" || !statuses[0].Available {
		t.Fatalf("expected available engine first, got %+v", statuses)
	}
}
