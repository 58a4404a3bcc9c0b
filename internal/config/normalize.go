package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipe()
	c.normalizeSession()
	if err := c.normalizeWorkspace(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeHistory()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipe() {
	c.Pipe.Path = strings.TrimSpace(c.Pipe.Path)
	if c.Pipe.Path == "" {
		c.Pipe.Path = defaultPipePath
	}
	if c.Pipe.ListenIntervalMS == 0 {
		c.Pipe.ListenIntervalMS = defaultListenIntervalMS
	}
}

func (c *Config) normalizeSession() {
	if c.Session.TickIntervalMS == 0 {
		c.Session.TickIntervalMS = defaultTickIntervalMS
	}
}

func (c *Config) normalizeWorkspace() error {
	scripts := make([]string, 0, len(c.Workspace.Scripts))
	for _, pattern := range c.Workspace.Scripts {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		expanded, err := expandPath(pattern)
		if err != nil {
			return fmt.Errorf("workspace.scripts: %w", err)
		}
		scripts = append(scripts, expanded)
	}
	c.Workspace.Scripts = scripts

	if strings.TrimSpace(c.Workspace.AddonsDir) == "" {
		c.Workspace.AddonsDir = defaultAddonsDir
	}
	var err error
	if c.Workspace.AddonsDir, err = expandPath(strings.TrimSpace(c.Workspace.AddonsDir)); err != nil {
		return fmt.Errorf("workspace.addons_dir: %w", err)
	}

	interpreter := make([]string, 0, len(c.Workspace.Interpreter))
	for _, arg := range c.Workspace.Interpreter {
		if arg = strings.TrimSpace(arg); arg != "" {
			interpreter = append(interpreter, arg)
		}
	}
	if len(interpreter) == 0 {
		interpreter = append(interpreter, defaultInterpreter...)
	}
	c.Workspace.Interpreter = interpreter

	if c.Workspace.ScriptTimeoutSeconds == 0 {
		c.Workspace.ScriptTimeoutSeconds = defaultScriptTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PIPERUN_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeHistory() {
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("PIPERUN_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
