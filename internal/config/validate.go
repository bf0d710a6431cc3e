package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	if err := c.validateFlatten(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEngine() error {
	if len(c.EngineCandidates()) == 0 {
		return errors.New("engine.binary or engine.fallback_binaries must be set")
	}
	return nil
}

func (c *Config) validateExtract() error {
	if c.Extract.Workers < 1 {
		return errors.New("extract.workers must be at least 1")
	}
	if len(c.Extract.SupportedExtensions) == 0 {
		return errors.New("extract.supported_extensions must include at least one extension")
	}
	if c.Extract.MarkerName == "" {
		return errors.New("extract.marker_name must be set")
	}
	if strings.ContainsAny(c.Extract.MarkerName, `/\`) {
		return fmt.Errorf("extract.marker_name %q must be a plain file name", c.Extract.MarkerName)
	}
	if c.Extract.TempSuffix == "" {
		return errors.New("extract.temp_suffix must be set")
	}
	return nil
}

func (c *Config) validateFlatten() error {
	if c.Flatten.Workers < 1 {
		return errors.New("flatten.workers must be at least 1")
	}
	if c.Flatten.MaxDepth < 1 {
		return errors.New("flatten.max_depth must be positive")
	}
	switch c.Flatten.ManifestFormat {
	case ManifestFormatPaths, ManifestFormatTree:
	default:
		return fmt.Errorf("flatten.manifest_format must be %q or %q", ManifestFormatPaths, ManifestFormatTree)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set when history.enabled is true")
	}
	if c.History.Limit < 0 {
		return errors.New("history.limit must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
