package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Pipe contains configuration for the named command channel.
type Pipe struct {
	// Path is a template; `${tmp}` and `${home}` are substituted when a
	// session starts.
	Path             string `toml:"path"`
	ListenIntervalMS int    `toml:"listen_interval_ms"`
}

// Session contains configuration for the foreground poller.
type Session struct {
	TickIntervalMS int  `toml:"tick_interval_ms"`
	Autostart      bool `toml:"autostart"`
}

// Workspace contains configuration for the scripts and add-ons that remote
// commands operate on.
type Workspace struct {
	Scripts              []string `toml:"scripts"`
	AddonsDir            string   `toml:"addons_dir"`
	Interpreter          []string `toml:"interpreter"`
	ScriptTimeoutSeconds int      `toml:"script_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
	Session        bool   `toml:"session"`
}

// History contains configuration for the command journal.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// API contains configuration for the optional HTTP API. An empty bind
// address disables it.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for piperun.
//
// Configuration sections by subsystem:
//   - Paths: state directory (socket, lock, log, history database)
//   - Pipe: named channel path template and listener poll interval
//   - Session: poller tick interval and autostart
//   - Workspace: scripts, add-ons, and the script interpreter
//   - Notifications: ntfy push notification settings
//   - History: command journal retention
//   - API: optional HTTP status and control API
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipe          Pipe          `toml:"pipe"`
	Session       Session       `toml:"session"`
	Workspace     Workspace     `toml:"workspace"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The pipe path template is left unresolved.
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("piperun.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// SocketPath returns the control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "piperun.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "piperun.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "piperun.pid")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "piperun.log")
}

// HistoryPath returns the command journal database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// ListenInterval returns the listener poll interval.
func (c *Config) ListenInterval() time.Duration {
	return time.Duration(c.Pipe.ListenIntervalMS) * time.Millisecond
}

// TickInterval returns the poller tick interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Session.TickIntervalMS) * time.Millisecond
}

// ScriptTimeout returns the maximum runtime of a single run_script command.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.Workspace.ScriptTimeoutSeconds) * time.Second
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

// TemplateVars holds the values substituted into path templates.
type TemplateVars struct {
	// Tmp is the runtime temp directory of the running instance.
	Tmp string
	// Home is the user home directory.
	Home string
}

// ExpandTemplate substitutes `${tmp}` and `${home}` in template. Other text,
// including unknown placeholders, is kept as is. The result is cleaned but
// not made absolute.
func ExpandTemplate(template string, vars TemplateVars) string {
	template = strings.TrimSpace(template)
	if template == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		placeholderTmp, vars.Tmp,
		placeholderHome, vars.Home,
	)
	return filepath.Clean(replacer.Replace(template))
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
