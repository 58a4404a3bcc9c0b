// Package workspace is the host state that remote commands act on: a set of
// loaded script texts and a registry of add-ons discovered on disk.
//
// A Workspace is not safe for concurrent use. The daemon only touches it from
// the host main loop, which is also where the command channel dispatches.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"piperun/internal/config"
	"piperun/internal/logging"
)

// Runner feeds script to the interpreter on stdin and returns its output.
type Runner func(ctx context.Context, interpreter []string, script string) (string, error)

// Option customizes a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logging.NewComponentLogger(logger, "workspace")
	}
}

// WithRunner replaces the interpreter runner.
func WithRunner(run Runner) Option {
	return func(w *Workspace) {
		if run != nil {
			w.run = run
		}
	}
}

// WithTimeout overrides the per-script run timeout.
func WithTimeout(d time.Duration) Option {
	return func(w *Workspace) {
		w.timeout = d
	}
}

// Workspace holds scripts and add-ons.
type Workspace struct {
	logger      *slog.Logger
	interpreter []string
	timeout     time.Duration
	run         Runner

	scripts map[string]*Script
	order   []string

	addonsDir string
	addons    map[string]*Addon
}

// New loads the configured scripts and discovers add-ons. Unreadable
// scripts are skipped with a warning.
func New(cfg *config.Config, opts ...Option) (*Workspace, error) {
	if cfg == nil {
		return nil, errors.New("workspace: nil config")
	}
	interpreter := append([]string(nil), cfg.Workspace.Interpreter...)
	if len(interpreter) == 0 {
		return nil, errors.New("workspace: interpreter is required")
	}

	w := &Workspace{
		logger:      logging.NewComponentLogger(nil, "workspace"),
		interpreter: interpreter,
		timeout:     cfg.ScriptTimeout(),
		run:         runInterpreter,
		scripts:     make(map[string]*Script),
		addonsDir:   cfg.Workspace.AddonsDir,
		addons:      make(map[string]*Addon),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, path := range expandScripts(cfg.Workspace.Scripts) {
		if _, err := w.LoadScript(path); err != nil {
			logging.WarnWithContext(w.logger, "skipping unreadable script", "script_load_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "commands for this script will match nothing"),
			)
		}
	}
	if err := w.DiscoverAddons(); err != nil {
		return nil, err
	}

	w.logger.Info("workspace loaded",
		logging.String(logging.FieldEventType, "workspace_loaded"),
		logging.Int("scripts", len(w.scripts)),
		logging.Int("addons", len(w.addons)),
	)
	return w, nil
}

// expandScripts resolves glob patterns. Literal paths pass through so a
// missing file is still reported by LoadScript.
func expandScripts(patterns []string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			add(pattern)
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			add(pattern)
			continue
		}
		for _, match := range matches {
			add(match)
		}
	}
	return out
}

func runInterpreter(ctx context.Context, interpreter []string, script string) (string, error) {
	cmd := exec.CommandContext(ctx, interpreter[0], interpreter[1:]...) //nolint:gosec
	cmd.Stdin = strings.NewReader(script)
	output, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(output))
	if err != nil {
		if out == "" {
			return "", fmt.Errorf("%s: %w", interpreter[0], err)
		}
		return out, fmt.Errorf("%s: %w: %s", interpreter[0], err, out)
	}
	return out, nil
}
