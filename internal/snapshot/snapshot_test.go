package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zipp/internal/testsupport"
)

func TestRecordPathsIncludesHiddenEntries(t *testing.T) {
	project := filepath.Join(t.TempDir(), "Proj")
	testsupport.WriteTree(t, project, "X/Y/file.txt", "X/.hidden", "X/empty/")

	res, err := NewRecorder(FormatPaths, nil).Record(project)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !res.Written || res.Path != filepath.Join(project, "Proj.txt") {
		t.Fatalf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	want := "X/\nX/.hidden\nX/Y/\nX/Y/file.txt\nX/empty/\n"
	if string(data) != want {
		t.Fatalf("manifest =\n%s\nwant\n%s", data, want)
	}
	if res.Entries != 5 {
		t.Fatalf("expected 5 entries, got %d", res.Entries)
	}
}

func TestRecordNeverOverwrites(t *testing.T) {
	project := filepath.Join(t.TempDir(), "Proj")
	testsupport.WriteTree(t, project, "a.txt")
	rec := NewRecorder(FormatPaths, nil)

	if _, err := rec.Record(project); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(filepath.Join(project, "Proj.txt"))

	testsupport.WriteTree(t, project, "b.txt")
	res, err := rec.Record(project)
	if err != nil {
		t.Fatal(err)
	}
	if res.Written {
		t.Fatal("second Record must not write")
	}
	second, _ := os.ReadFile(filepath.Join(project, "Proj.txt"))
	if string(first) != string(second) {
		t.Fatalf("manifest changed:\n%s\n---\n%s", first, second)
	}
}

func TestRecordTreeFormat(t *testing.T) {
	project := filepath.Join(t.TempDir(), "Proj")
	testsupport.WriteTree(t, project, "X/Y/file.txt", "X/.DS_Store", "z.txt")

	res, err := NewRecorder(FormatTree, nil).Record(project)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(res.Path)
	want := strings.Join([]string{
		"Original Archive Structure: Proj",
		strings.Repeat("-", 40),
		"Proj/",
		"├── X",
		"│   ├── .DS_Store",
		"│   └── Y",
		"│       └── file.txt",
		"└── z.txt",
		"",
	}, "\n")
	if string(data) != want {
		t.Fatalf("tree =\n%s\nwant\n%s", data, want)
	}
}

func TestRecordMissingProject(t *testing.T) {
	if _, err := NewRecorder(FormatPaths, nil).Record(filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Fatal("expected error for missing project")
	}
}

func TestManifestName(t *testing.T) {
	if got := ManifestName("/data/out/Proj/"); got != "Proj.txt" {
		t.Fatalf("ManifestName = %q", got)
	}
}
