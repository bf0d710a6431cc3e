package archive

import "path/filepath"

// Format tags the volume convention an archive group follows.
type Format string

const (
	FormatZip      Format = "zip"
	FormatRar      Format = "rar"
	Format7z       Format = "7z"
	FormatSingle   Format = "single"
	FormatSplit    Format = "split"
	FormatNumeric  Format = "numeric"
	FormatPart     Format = "part"
	FormatZipSplit Format = "zipsplit"
	FormatRarOld   Format = "rarold"
)

// MultiVolume reports whether the format is a multi-volume convention.
func (f Format) MultiVolume() bool {
	switch f {
	case FormatSplit, FormatNumeric, FormatPart, FormatZipSplit, FormatRarOld:
		return true
	}
	return false
}

// ArchiveGroup is one logical archive.
type ArchiveGroup struct {
	// Key is the normalized identity used for grouping.
	Key string
	// Dir is the directory holding the volumes, relative to the input root.
	Dir string
	// Name is the target directory base name.
	Name string
	// PrimaryPath is the first volume in numeric order.
	PrimaryPath string
	// Parts holds every volume sorted by volume number.
	Parts []string
	Format Format
	// TargetDir is where the committed extraction lives.
	TargetDir string
	// Size is the combined size of all parts in bytes.
	Size int64

	entry string
}

// EnginePath returns the file handed to the extraction engine. Split zip
// sets are opened through their .zip member; every other convention starts
// from the primary volume.
func (g ArchiveGroup) EnginePath() string {
	if g.entry != "" {
		return g.entry
	}
	return g.PrimaryPath
}

// DisplayName is the primary volume's file name.
func (g ArchiveGroup) DisplayName() string {
	return filepath.Base(g.PrimaryPath)
}

// VolumeCount returns the number of parts in the group.
func (g ArchiveGroup) VolumeCount() int {
	return len(g.Parts)
}
