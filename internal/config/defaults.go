package config

import "runtime"

const (
	defaultStateDir       = "~/.local/share/zipp"
	defaultLogDir         = "~/.local/share/zipp/logs"
	defaultEngineBinary   = "7z"
	defaultMarkerName     = ".zipp_done"
	defaultTempSuffix     = ".out_tmp"
	defaultMaxDepth       = 256
	defaultManifestFormat = ManifestFormatPaths
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultHistoryLimit   = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Engine: Engine{
			Binary:           defaultEngineBinary,
			FallbackBinaries: []string{"/mnt/runtime/sbin/7zzs", "7zz", "7z"},
			StrictSuccess:    true,
		},
		Extract: Extract{
			Workers:             runtime.NumCPU(),
			SupportedExtensions: []string{".zip", ".7z", ".rar"},
			ClearResidue:        true,
			MarkerName:          defaultMarkerName,
			TempSuffix:          defaultTempSuffix,
		},
		Flatten: Flatten{
			Workers:        runtime.NumCPU(),
			MaxDepth:       defaultMaxDepth,
			ManifestFormat: defaultManifestFormat,
			JunkNames:      []string{".DS_Store", defaultMarkerName, "__MACOSX", "__thumb", "Thumbs.db"},
		},
		History: History{
			Enabled: true,
			Limit:   defaultHistoryLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
