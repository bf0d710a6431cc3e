package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zipp/internal/archive"
	"zipp/internal/services"
	"zipp/internal/testsupport"
)

var defaultExts = []string{".zip", ".7z", ".rar"}

func scan(t *testing.T, root string, opts archive.Options) archive.Plan {
	t.Helper()
	if opts.SupportedExtensions == nil {
		opts.SupportedExtensions = defaultExts
	}
	plan, err := archive.Scan(root, opts)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	return plan
}

func findGroup(t *testing.T, plan archive.Plan, name string) archive.ArchiveGroup {
	t.Helper()
	for _, g := range plan.Groups {
		if g.Name == name {
			return g
		}
	}
	t.Fatalf("group %q not found in %+v", name, plan.Groups)
	return archive.ArchiveGroup{}
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestScanSplitSetAndSingle(t *testing.T) {
	root := t.TempDir()
	var entries []string
	for _, n := range []string{"001", "002", "003", "004", "005", "006", "007", "008", "009", "010"} {
		entries = append(entries, "a.7z."+n)
	}
	entries = append(entries, "b.zip")
	testsupport.WriteTree(t, root, entries...)

	plan := scan(t, root, archive.Options{})
	if len(plan.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(plan.Groups), plan.Groups)
	}
	if plan.Groups[0].Name != "b" || plan.Groups[1].Name != "a" {
		t.Fatalf("expected single archives before volume sets, got %s then %s", plan.Groups[0].Name, plan.Groups[1].Name)
	}

	split := findGroup(t, plan, "a")
	if split.Format != archive.FormatSplit {
		t.Fatalf("expected split format, got %s", split.Format)
	}
	if split.VolumeCount() != 10 {
		t.Fatalf("expected 10 parts, got %d", split.VolumeCount())
	}
	got := baseNames(split.Parts)
	if got[0] != "a.7z.001" || got[9] != "a.7z.010" {
		t.Fatalf("unexpected part order: %v", got)
	}
	if split.EnginePath() != filepath.Join(root, "a.7z.001") {
		t.Fatalf("unexpected engine path %s", split.EnginePath())
	}
	if split.TargetDir != filepath.Join(root, "a") {
		t.Fatalf("unexpected target %s", split.TargetDir)
	}

	single := findGroup(t, plan, "b")
	if single.Format != archive.FormatZip || single.VolumeCount() != 1 {
		t.Fatalf("expected single zip, got %+v", single)
	}
	if plan.SingleCount() != 1 || plan.MultiCount() != 1 {
		t.Fatalf("unexpected counts single=%d multi=%d", plan.SingleCount(), plan.MultiCount())
	}
}

func TestScanOrdersVolumesNumerically(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, "movie.part10.rar", "movie.part2.rar", "movie.part1.rar")

	plan := scan(t, root, archive.Options{})
	if len(plan.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", plan.Groups)
	}
	g := plan.Groups[0]
	if g.Format != archive.FormatPart {
		t.Fatalf("expected part format, got %s", g.Format)
	}
	want := []string{"movie.part1.rar", "movie.part2.rar", "movie.part10.rar"}
	got := baseNames(g.Parts)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("part order = %v, want %v", got, want)
		}
	}
	if g.Name != "movie" {
		t.Fatalf("expected target name movie, got %s", g.Name)
	}
}

func TestScanVolumeConventions(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		target   string
		format   archive.Format
		parts    int
		primary  string
		engineAt string
	}{
		{"zip split", []string{"x.z01", "x.z02", "x.zip"}, "x", archive.FormatZipSplit, 3, "x.z01", "x.zip"},
		{"old rar", []string{"y.r01", "y.rar", "y.r00"}, "y", archive.FormatRarOld, 3, "y.rar", "y.rar"},
		{"generic numeric", []string{"data.002", "data.001"}, "data", archive.FormatNumeric, 2, "data.001", "data.001"},
		{"zip dot split", []string{"pics.zip.002", "pics.zip.001"}, "pics", archive.FormatSplit, 2, "pics.zip.001", "pics.zip.001"},
		{"zip suffix stripped", []string{"photos_zip.zip"}, "photos", archive.FormatZip, 1, "photos_zip.zip", "photos_zip.zip"},
		{"single 7z", []string{"docs.7z"}, "docs", archive.Format7z, 1, "docs.7z", "docs.7z"},
		{"lonely split member", []string{"only.7z.001"}, "only", archive.FormatSplit, 1, "only.7z.001", "only.7z.001"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			testsupport.WriteTree(t, root, tc.files...)
			plan := scan(t, root, archive.Options{})
			if len(plan.Groups) != 1 {
				t.Fatalf("expected one group, got %+v", plan.Groups)
			}
			g := plan.Groups[0]
			if g.Name != tc.target {
				t.Fatalf("target name = %q, want %q", g.Name, tc.target)
			}
			if g.Format != tc.format {
				t.Fatalf("format = %s, want %s", g.Format, tc.format)
			}
			if g.VolumeCount() != tc.parts {
				t.Fatalf("parts = %d, want %d", g.VolumeCount(), tc.parts)
			}
			if filepath.Base(g.PrimaryPath) != tc.primary {
				t.Fatalf("primary = %s, want %s", filepath.Base(g.PrimaryPath), tc.primary)
			}
			if filepath.Base(g.EnginePath()) != tc.engineAt {
				t.Fatalf("engine path = %s, want %s", filepath.Base(g.EnginePath()), tc.engineAt)
			}
		})
	}
}

func TestScanFoldsCaseInGroupKeys(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, "Bar.Part1.RAR", "bar.part2.rar")

	plan := scan(t, root, archive.Options{})
	if len(plan.Groups) != 1 {
		t.Fatalf("expected case variants to share a group, got %+v", plan.Groups)
	}
	if plan.Groups[0].Name != "Bar" {
		t.Fatalf("expected name from first volume, got %s", plan.Groups[0].Name)
	}
}

func TestScanKeepsOriginalSpellingInTarget(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	decomposed := "Cafe\u0301 Photos" // NFD, as written by macOS
	testsupport.WriteTree(t, root, decomposed+".zip", "Ve\u0301lo.PART1.RAR", "v\u00e9lo.part2.rar")

	plan := scan(t, root, archive.Options{OutputDir: out})
	if len(plan.Groups) != 2 {
		t.Fatalf("expected two groups, got %+v", plan.Groups)
	}
	photos := findGroup(t, plan, decomposed)
	if photos.TargetDir != filepath.Join(out, decomposed) {
		t.Fatalf("target dir = %q, want %q", photos.TargetDir, filepath.Join(out, decomposed))
	}
	velo := findGroup(t, plan, "Ve\u0301lo")
	if velo.VolumeCount() != 2 || velo.Format != archive.FormatPart {
		t.Fatalf("normalization variants must share a group, got %+v", velo)
	}
}

func TestScanReportsIgnoredFiles(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, "notes.txt", "readme.md", "todo.txt", "._a.zip", "a.zip")

	plan := scan(t, root, archive.Options{})
	if len(plan.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", plan.Groups)
	}
	if plan.TotalFiles != 5 {
		t.Fatalf("expected 5 files inspected, got %d", plan.TotalFiles)
	}
	if plan.IgnoredByExt[".txt"] != 2 || plan.IgnoredByExt[".md"] != 1 {
		t.Fatalf("unexpected ignored counts %v", plan.IgnoredByExt)
	}
	if len(plan.Ignored) != 4 {
		t.Fatalf("expected 4 ignored entries, got %+v", plan.Ignored)
	}
}

func TestScanDuplicateTargetIsAmbiguous(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, "c.zip", "c.7z")

	plan := scan(t, root, archive.Options{})
	if len(plan.Groups) != 1 {
		t.Fatalf("expected one surviving group, got %+v", plan.Groups)
	}
	if filepath.Base(plan.Groups[0].PrimaryPath) != "c.7z" {
		t.Fatalf("expected c.7z to win, got %s", plan.Groups[0].PrimaryPath)
	}
	found := false
	for _, ig := range plan.Ignored {
		if filepath.Base(ig.Path) == "c.zip" && strings.Contains(ig.Reason, services.ErrAmbiguous.Error()) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected c.zip reported as ambiguous, got %+v", plan.Ignored)
	}
}

func TestScanRecursiveSkipsStagingAndCommitted(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root,
		"top.zip",
		"sub/d.zip",
		"done/.zipp_done",
		"done/inner.zip",
		"e.out_tmp/leftover.zip",
	)
	opts := archive.Options{TempSuffix: ".out_tmp", MarkerName: ".zipp_done"}

	flat := scan(t, root, opts)
	if len(flat.Groups) != 1 || flat.Groups[0].Name != "top" {
		t.Fatalf("non-recursive scan should only see top.zip, got %+v", flat.Groups)
	}

	opts.Recursive = true
	deep := scan(t, root, opts)
	if len(deep.Groups) != 2 {
		t.Fatalf("expected top and sub/d, got %+v", deep.Groups)
	}
	d := findGroup(t, deep, "d")
	if d.Dir != "sub" {
		t.Fatalf("expected Dir sub, got %q", d.Dir)
	}
	if d.TargetDir != filepath.Join(root, "sub", "d") {
		t.Fatalf("unexpected target %s", d.TargetDir)
	}
}

func TestScanOutputDirMirrorsLayout(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	testsupport.WriteTree(t, root, "sub/d.zip")

	plan := scan(t, root, archive.Options{OutputDir: out, Recursive: true})
	if len(plan.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", plan.Groups)
	}
	if plan.Groups[0].TargetDir != filepath.Join(out, "sub", "d") {
		t.Fatalf("unexpected target %s", plan.Groups[0].TargetDir)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := archive.Scan(filepath.Join(t.TempDir(), "missing"), archive.Options{SupportedExtensions: defaultExts})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScanRejectsFileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.zip")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := archive.Scan(path, archive.Options{SupportedExtensions: defaultExts})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
