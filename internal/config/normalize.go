package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeExtract()
	c.normalizeFlatten()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() {
	if value, ok := os.LookupEnv("ZIPP_ENGINE"); ok && strings.TrimSpace(value) != "" {
		c.Engine.Binary = value
	}
	c.Engine.Binary = strings.TrimSpace(c.Engine.Binary)
	c.Engine.FallbackBinaries = trimNonEmpty(c.Engine.FallbackBinaries)
	c.Engine.ExtraArgs = trimNonEmpty(c.Engine.ExtraArgs)
	if c.Engine.TimeoutSeconds < 0 {
		c.Engine.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeExtract() {
	if c.Extract.Workers <= 0 {
		c.Extract.Workers = runtime.NumCPU()
	}
	exts := make([]string, 0, len(c.Extract.SupportedExtensions))
	for _, ext := range trimNonEmpty(c.Extract.SupportedExtensions) {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Extract.SupportedExtensions = exts
	c.Extract.MarkerName = strings.TrimSpace(c.Extract.MarkerName)
	c.Extract.TempSuffix = strings.TrimSpace(c.Extract.TempSuffix)
}

func (c *Config) normalizeFlatten() {
	if c.Flatten.Workers <= 0 {
		c.Flatten.Workers = runtime.NumCPU()
	}
	c.Flatten.ManifestFormat = strings.ToLower(strings.TrimSpace(c.Flatten.ManifestFormat))
	if c.Flatten.ManifestFormat == "" {
		c.Flatten.ManifestFormat = defaultManifestFormat
	}
	c.Flatten.JunkNames = trimNonEmpty(c.Flatten.JunkNames)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimNonEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
