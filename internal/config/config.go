package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Manifest formats understood by the snapshot recorder.
const (
	ManifestFormatPaths = "paths"
	ManifestFormatTree  = "tree"
)

// Paths contains directory configuration for persistent state.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Engine contains configuration for the external extraction engine.
type Engine struct {
	Binary           string   `toml:"binary"`
	FallbackBinaries []string `toml:"fallback_binaries"`
	// TimeoutSeconds bounds a single archive extraction. Zero means no limit.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// StrictSuccess requires the engine's completion banner in addition to a
	// zero exit status before a job is marked verified.
	StrictSuccess bool     `toml:"strict_success"`
	ExtraArgs     []string `toml:"extra_args"`
}

// Extract contains configuration for archive discovery and extraction.
type Extract struct {
	Workers             int      `toml:"workers"`
	Recursive           bool     `toml:"recursive"`
	SupportedExtensions []string `toml:"supported_extensions"`
	ClearResidue        bool     `toml:"clear_residue"`
	MarkerName          string   `toml:"marker_name"`
	TempSuffix          string   `toml:"temp_suffix"`
}

// Flatten contains configuration for project snapshots and convergence.
type Flatten struct {
	Workers        int      `toml:"workers"`
	MaxDepth       int      `toml:"max_depth"`
	ManifestFormat string   `toml:"manifest_format"`
	JunkNames      []string `toml:"junk_names"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
	Limit   int  `toml:"limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for zipp.
//
// Configuration sections by subsystem:
//   - Paths: ledger database and log file locations
//   - Engine: 7-Zip binary resolution and success detection
//   - Extract: grouping, worker pool, and staging conventions
//   - Flatten: manifest format, junk names, and convergence bounds
//   - History: run ledger toggle and listing size
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Engine  Engine  `toml:"engine"`
	Extract Extract `toml:"extract"`
	Flatten Flatten `toml:"flatten"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/zipp/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("zipp.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories when history or file
// logging needs them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EngineCandidates returns the ordered list of binaries tried when resolving
// the extraction engine, with the configured binary first.
func (c *Config) EngineCandidates() []string {
	seen := make(map[string]struct{}, len(c.Engine.FallbackBinaries)+1)
	out := make([]string, 0, len(c.Engine.FallbackBinaries)+1)
	for _, candidate := range append([]string{c.Engine.Binary}, c.Engine.FallbackBinaries...) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// HistoryPath returns the run ledger database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath returns the log file every command appends to, or "" when file
// logging is disabled.
func (c *Config) LogPath() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "zipp.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ErrConfigExists is returned by CreateSample when the target is already present
// and overwrite was not requested.
var ErrConfigExists = errors.New("config file already exists")

// CreateSample writes the embedded sample configuration to path. Without
// overwrite an existing file is left alone and ErrConfigExists is returned.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w at %s (use --overwrite to replace it)", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
