package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"zipp/internal/services"
)

// Options controls discovery.
type Options struct {
	// OutputDir is the root under which target directories are derived. When
	// empty, targets sit beside their archives.
	OutputDir string
	// Recursive descends into subdirectories of the input root.
	Recursive bool
	// SupportedExtensions lists single-archive extensions (lowercase, dotted).
	SupportedExtensions []string
	// TempSuffix marks staging directories, which are never scanned.
	TempSuffix string
	// MarkerName identifies committed outputs, which are never scanned.
	MarkerName string
}

// Ignored records a file that did not form (or lost) a group.
type Ignored struct {
	Path   string
	Reason string
}

// Plan is the result of a discovery pass.
type Plan struct {
	Root    string
	Groups  []ArchiveGroup
	Ignored []Ignored
	// IgnoredByExt counts unmatched files by lowercase extension.
	IgnoredByExt map[string]int
	// TotalFiles counts every regular file inspected.
	TotalFiles int
}

// SingleCount returns the number of single-volume groups.
func (p Plan) SingleCount() int {
	n := 0
	for _, g := range p.Groups {
		if !g.Format.MultiVolume() {
			n++
		}
	}
	return n
}

// MultiCount returns the number of multi-volume groups.
func (p Plan) MultiCount() int {
	return len(p.Groups) - p.SingleCount()
}

// Scan discovers archive groups under root. An unreadable root aborts the
// scan; unreadable subdirectories are recorded as ignored.
func Scan(root string, opts Options) (Plan, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return Plan{}, services.Wrap(services.ErrNotFound, "discover", "stat input", "Input directory is not accessible", err)
	}
	if !info.IsDir() {
		return Plan{}, services.Wrap(services.ErrConfiguration, "discover", "stat input", "Input path is not a directory", nil)
	}

	plan := Plan{Root: root, IgnoredByExt: make(map[string]int)}
	rules := volumeRules(normalizeExtensions(opts.SupportedExtensions))
	var volumes []volume

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			plan.Ignored = append(plan.Ignored, Ignored{Path: path, Reason: "unreadable: " + err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || skipDir(path, name, opts) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		plan.TotalFiles++
		if strings.HasPrefix(name, ".") {
			plan.Ignored = append(plan.Ignored, Ignored{Path: path, Reason: "hidden file"})
			return nil
		}
		vol, ok := classify(rules, path, name)
		if !ok {
			plan.IgnoredByExt[extensionLabel(name)]++
			plan.Ignored = append(plan.Ignored, Ignored{Path: path, Reason: "not an archive"})
			return nil
		}
		if fi, err := d.Info(); err == nil {
			vol.size = fi.Size()
		}
		volumes = append(volumes, vol)
		return nil
	})
	if walkErr != nil {
		return Plan{}, services.Wrap(services.ErrFilesystem, "discover", "walk input", "Input directory is not readable", walkErr)
	}

	groups := groupVolumes(root, opts.OutputDir, volumes)
	plan.Groups, plan.Ignored = dedupeTargets(groups, plan.Ignored)
	return plan, nil
}

func skipDir(path, name string, opts Options) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if opts.TempSuffix != "" && strings.HasSuffix(name, opts.TempSuffix) {
		return true
	}
	if opts.MarkerName != "" {
		if _, err := os.Stat(filepath.Join(path, opts.MarkerName)); err == nil {
			return true
		}
	}
	return false
}

func classify(rules []rule, path, name string) (volume, bool) {
	// Matching runs on the folded form; the stem is cut from the original
	// name so target directories keep the user's spelling.
	folded := foldName(name)
	for _, r := range rules {
		cut, family, index, ok := r.match(folded)
		if !ok {
			continue
		}
		stem := originalStem(name, folded, cut)
		if strings.TrimSpace(stem) == "" {
			continue
		}
		format := r.format
		if format == FormatSingle {
			format = singleFormat(family)
		}
		return volume{path: path, name: name, stem: stem, family: family, index: index, format: format}, true
	}
	return volume{}, false
}

// foldName produces the comparison form of a file name: NFC composed, then
// Unicode case folded.
func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

func groupKey(root string, v volume) string {
	dir, err := filepath.Rel(root, filepath.Dir(v.path))
	if err != nil {
		dir = filepath.Dir(v.path)
	}
	return filepath.ToSlash(dir) + "\x00" + v.family + "\x00" + foldName(v.stem)
}

func groupVolumes(root, outputDir string, volumes []volume) []ArchiveGroup {
	keys := make([]string, len(volumes))
	for i, v := range volumes {
		keys[i] = groupKey(root, v)
	}
	idx := make([]int, len(volumes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka != kb {
			return ka < kb
		}
		va, vb := volumes[idx[a]], volumes[idx[b]]
		if va.index != vb.index {
			return va.index < vb.index
		}
		return va.name < vb.name
	})

	var groups []ArchiveGroup
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && keys[idx[end]] == keys[idx[start]] {
			end++
		}
		members := make([]volume, 0, end-start)
		for _, i := range idx[start:end] {
			members = append(members, volumes[i])
		}
		groups = append(groups, buildGroup(root, outputDir, keys[idx[start]], members))
		start = end
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ga, gb := groups[a], groups[b]
		if ga.Dir != gb.Dir {
			return ga.Dir < gb.Dir
		}
		ma, mb := ga.Format.MultiVolume(), gb.Format.MultiVolume()
		if ma != mb {
			return !ma
		}
		fa, fb := foldName(ga.DisplayName()), foldName(gb.DisplayName())
		if fa != fb {
			return fa < fb
		}
		return ga.PrimaryPath < gb.PrimaryPath
	})
	return groups
}

func buildGroup(root, outputDir, key string, members []volume) ArchiveGroup {
	first := members[0]
	g := ArchiveGroup{
		Key:         key,
		Name:        targetName(first.stem),
		PrimaryPath: first.path,
		Format:      groupFormat(members),
	}
	for _, m := range members {
		g.Parts = append(g.Parts, m.path)
		g.Size += m.size
	}
	if g.Format == FormatZipSplit {
		for _, m := range members {
			if m.index == zipEntryIndex {
				g.entry = m.path
			}
		}
	}
	dir := filepath.Dir(first.path)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		rel = ""
	}
	g.Dir = filepath.ToSlash(rel)
	base := dir
	if outputDir != "" {
		base = filepath.Join(outputDir, rel)
	}
	g.TargetDir = filepath.Join(base, g.Name)
	return g
}

func groupFormat(members []volume) Format {
	if len(members) == 1 {
		return members[0].format
	}
	for _, m := range members {
		if m.format.MultiVolume() {
			return m.format
		}
	}
	return members[0].format
}

// dedupeTargets keeps the first group per target directory; later groups
// that would land in the same place are reported as ambiguous.
func dedupeTargets(groups []ArchiveGroup, ignored []Ignored) ([]ArchiveGroup, []Ignored) {
	seen := make(map[string]string, len(groups))
	kept := groups[:0]
	for _, g := range groups {
		target := foldName(g.TargetDir)
		if winner, ok := seen[target]; ok {
			reason := fmt.Sprintf("%v: target %s already claimed by %s", services.ErrAmbiguous, g.TargetDir, filepath.Base(winner))
			for _, part := range g.Parts {
				ignored = append(ignored, Ignored{Path: part, Reason: reason})
			}
			continue
		}
		seen[target] = g.PrimaryPath
		kept = append(kept, g)
	}
	return kept, ignored
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	// Longer extensions first so ".tar.gz" would win over ".gz".
	sort.SliceStable(out, func(a, b int) bool { return len(out[a]) > len(out[b]) })
	return out
}

func extensionLabel(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "(none)"
	}
	return ext
}
