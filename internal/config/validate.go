package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipe(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipe() error {
	if strings.TrimSpace(c.Pipe.Path) == "" {
		return errors.New("pipe.path must be set")
	}
	if strings.HasSuffix(c.Pipe.Path, "/") {
		return fmt.Errorf("pipe.path %q must name a file, not a directory", c.Pipe.Path)
	}
	if c.Pipe.ListenIntervalMS < 0 {
		return errors.New("pipe.listen_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.TickIntervalMS < 0 {
		return errors.New("session.tick_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateWorkspace() error {
	if c.Workspace.ScriptTimeoutSeconds < 0 {
		return errors.New("workspace.script_timeout_seconds must be positive")
	}
	if len(c.Workspace.Interpreter) == 0 {
		return errors.New("workspace.interpreter must name a command")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Bind == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(c.API.Bind)
	if err != nil {
		return fmt.Errorf("api.bind: %w", err)
	}
	if c.API.Token == "" && !isLoopbackHost(host) {
		return fmt.Errorf("api.token is required when api.bind (%s) is not a loopback address", c.API.Bind)
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
