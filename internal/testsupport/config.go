package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"zipp/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Extract.Workers = 2
	cfgVal.Flatten.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers sets both pool sizes on the test config.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extract.Workers = n
		b.cfg.Flatten.Workers = n
	}
}

// WithHistoryDisabled turns the run ledger off.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, a stub 7z is written.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"7z"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\necho 'Everything is Ok'\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.cfg.Engine.Binary = names[0]
		b.cfg.Engine.FallbackBinaries = nil
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// ExtractingEngineScript is a stand-in 7-Zip that writes "<archive>.txt"
// into the -o directory. Archives whose name contains "bad" fail with 7-Zip's
// data error exit status.
const ExtractingEngineScript = `#!/bin/sh
dest=""
archive=""
for arg in "$@"; do
  case "$arg" in
    -o*) dest="${arg#-o}" ;;
    -*|x) ;;
    *) archive="$arg" ;;
  esac
done
case "$(basename "$archive")" in
  *bad*) echo "ERROR: $archive : Data Error"; exit 2 ;;
esac
echo "$archive" > "$dest/$(basename "$archive").txt"
echo "Everything is Ok"
`

// WithEngineScript writes script as an executable and points engine.binary
// at its absolute path.
func WithEngineScript(script string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "bin", "engine")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write engine stub: %v", err)
		}
		b.cfg.Engine.Binary = path
		b.cfg.Engine.FallbackBinaries = nil
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
