package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"piperun/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The pipe lives under the temp dir and intervals are shortened so tests
// settle quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Pipe.Path = "${tmp}/script_run_pipe"
	cfgVal.Pipe.ListenIntervalMS = 5
	cfgVal.Session.TickIntervalMS = 5
	cfgVal.Workspace.AddonsDir = filepath.Join(base, "addons")
	cfgVal.Notifications.Errors = false

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

// WithScripts writes each named script under the base dir and adds it to the
// workspace.
func WithScripts(contents map[string]string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "scripts")
		for name, body := range contents {
			target := filepath.Join(dir, name)
			WriteText(b.t, target, body)
			b.cfg.Workspace.Scripts = append(b.cfg.Workspace.Scripts, target)
		}
	}
}

// WithAddon creates an add-on directory containing a manifest and the given
// module files.
func WithAddon(name string, modules map[string]string) ConfigOption {
	return func(b *configBuilder) {
		root := filepath.Join(b.cfg.Workspace.AddonsDir, name)
		WriteText(b.t, filepath.Join(root, "addon.toml"), "name = \""+name+"\"\nenabled = true\n")
		for rel, body := range modules {
			WriteText(b.t, filepath.Join(root, rel), body)
		}
	}
}

// WithHistory toggles the command journal.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithNtfyTopic points notifications at topic and enables error pushes.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.Errors = true
		b.cfg.Notifications.Session = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// EnsureStateDir creates the config's state directory.
func EnsureStateDir(t testing.TB, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatalf("mkdir state dir: %v", err)
	}
}

// WithAPI enables the HTTP API on an ephemeral loopback port.
func WithAPI(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Bind = "127.0.0.1:0"
		b.cfg.API.Token = token
	}
}
