package archive

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// volume is one file classified by a rule.
type volume struct {
	path   string
	name   string
	stem   string
	family string
	index  int
	format Format
	size   int64
}

// rule pairs a name predicate with its (family, index) extractor. match
// sees only the folded name and returns the byte offset where the archive
// suffix starts. Rules are evaluated in order; the first match wins.
type rule struct {
	format Format
	match  func(folded string) (cut int, family string, index int, ok bool)
}

var (
	splitPattern    = regexp.MustCompile(`^(.+)\.(zip|7z|rar)\.(\d+)$`)
	partPattern     = regexp.MustCompile(`^(.+)\.part(\d+)\.(rar|zip|7z)$`)
	zipSplitPattern = regexp.MustCompile(`^(.+)\.z(\d{2,3})$`)
	rarOldPattern   = regexp.MustCompile(`^(.+)\.r(\d{2,3})$`)
	numericPattern  = regexp.MustCompile(`^(.+)\.(\d{3})$`)
)

// zipEntryIndex places the .zip member of a split zip set after every .zNN
// volume; Info-ZIP writes the central directory into that file last.
const zipEntryIndex = math.MaxInt32

func volumeRules(singleExts []string) []rule {
	return []rule{
		{format: FormatSplit, match: func(folded string) (int, string, int, bool) {
			m := splitPattern.FindStringSubmatchIndex(folded)
			if m == nil {
				return 0, "", 0, false
			}
			n, err := strconv.Atoi(folded[m[6]:m[7]])
			if err != nil {
				return 0, "", 0, false
			}
			return m[3], "split-" + folded[m[4]:m[5]], n, true
		}},
		{format: FormatPart, match: func(folded string) (int, string, int, bool) {
			m := partPattern.FindStringSubmatchIndex(folded)
			if m == nil {
				return 0, "", 0, false
			}
			n, err := strconv.Atoi(folded[m[4]:m[5]])
			if err != nil {
				return 0, "", 0, false
			}
			return m[3], "part-" + folded[m[6]:m[7]], n, true
		}},
		{format: FormatZipSplit, match: func(folded string) (int, string, int, bool) {
			return numberedSuffix(zipSplitPattern, folded, "zip", 0)
		}},
		{format: FormatRarOld, match: func(folded string) (int, string, int, bool) {
			// .rar is volume 0, so .r00 is volume 1.
			return numberedSuffix(rarOldPattern, folded, "rar", 1)
		}},
		{format: FormatNumeric, match: func(folded string) (int, string, int, bool) {
			return numberedSuffix(numericPattern, folded, "numeric", 0)
		}},
		{format: FormatSingle, match: func(folded string) (int, string, int, bool) {
			for _, ext := range singleExts {
				if !strings.HasSuffix(folded, ext) || len(folded) == len(ext) {
					continue
				}
				family := strings.TrimPrefix(ext, ".")
				index := 0
				if ext == ".zip" {
					index = zipEntryIndex
				}
				return len(folded) - len(ext), family, index, true
			}
			return 0, "", 0, false
		}},
	}
}

func numberedSuffix(pattern *regexp.Regexp, folded, family string, offset int) (int, string, int, bool) {
	m := pattern.FindStringSubmatchIndex(folded)
	if m == nil {
		return 0, "", 0, false
	}
	n, err := strconv.Atoi(folded[m[4]:m[5]])
	if err != nil {
		return 0, "", 0, false
	}
	return m[3], family, n + offset, true
}

// originalStem drops from name as many trailing runes as the folded suffix
// folded[cut:] holds. Archive suffixes are single-rune-per-character under
// folding, so the stem keeps the name's own spelling and normalization.
func originalStem(name, folded string, cut int) string {
	end := len(name)
	for n := utf8.RuneCountInString(folded[cut:]); n > 0 && end > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(name[:end])
		end -= size
	}
	return name[:end]
}

// singleFormat maps a single-archive family to its format tag.
func singleFormat(family string) Format {
	switch family {
	case "zip":
		return FormatZip
	case "rar":
		return FormatRar
	case "7z":
		return Format7z
	default:
		return FormatSingle
	}
}

// targetName derives the output directory name from a group stem.
func targetName(stem string) string {
	name := strings.TrimSpace(stem)
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], "_zip") {
		name = name[:len(name)-4]
	}
	return name
}
