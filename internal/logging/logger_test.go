package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zipp/internal/config"
	"zipp/internal/logging"
	"zipp/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "zipp.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithArchive(services.WithRunID(context.Background(), "run-1"), "movies.7z")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "extract"))
	logger.Info("job committed", logging.String("target", "/out/movies dir"), logging.Int("parts", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO extract [movies.7z]: job committed", `target="/out/movies dir"`, "parts=3"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if !strings.Contains(line, "run_id=run-1") {
		t.Fatalf("expected run id so lines can be filtered per run, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithProject(logging.WithRun(context.Background(), "run-9"), "Album")
	logging.WithContext(ctx, logger).Warn("rolled back")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if payload["run_id"] != "run-9" || payload["project"] != "Album" {
		t.Fatalf("missing context fields: %v", payload)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "residue cleared", "residue_cleared", logging.String(logging.FieldImpact, "stale files removed"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{`"event_type":"residue_cleared"`, `"error_hint":"check zipp logs for details"`, `"impact":"stale files removed"`} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %s in %s", fragment, text)
		}
	}
}

func TestErrorKindLabelsMarker(t *testing.T) {
	err := services.Wrap(services.ErrEngine, "extract", "run engine", "data error", nil)
	if got := logging.ErrorKind(err).Value.String(); got != "engine" {
		t.Fatalf("expected engine kind, got %q", got)
	}
	if got := logging.ErrorKind(nil).Value.String(); got != "" {
		t.Fatalf("expected empty kind for nil error, got %q", got)
	}
}
