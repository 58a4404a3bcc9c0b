package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"piperun/internal/logging"
)

// Script is a loaded text.
type Script struct {
	Path     string
	Name     string
	Text     string
	LoadedAt time.Time
	Runs     int
}

// LoadScript reads path into the workspace, replacing any earlier copy.
func (w *Workspace) LoadScript(path string) (*Script, error) {
	key := filepath.Clean(path)
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	script, ok := w.scripts[key]
	if !ok {
		script = &Script{Path: key, Name: filepath.Base(key)}
		w.scripts[key] = script
		w.order = append(w.order, key)
	}
	script.Text = string(data)
	script.LoadedAt = time.Now()
	return script, nil
}

// Script returns the loaded script at path.
func (w *Workspace) Script(path string) (*Script, bool) {
	script, ok := w.scripts[filepath.Clean(path)]
	return script, ok
}

// Scripts lists loaded scripts sorted by path.
func (w *Workspace) Scripts() []Script {
	keys := append([]string(nil), w.order...)
	sort.Strings(keys)
	out := make([]Script, 0, len(keys))
	for _, key := range keys {
		out = append(out, *w.scripts[key])
	}
	return out
}

// ReloadScript re-reads a loaded script from disk. Paths that are not loaded
// match nothing.
func (w *Workspace) ReloadScript(path string) (string, error) {
	existing, ok := w.Script(path)
	if !ok {
		return "", nil
	}
	script, err := w.LoadScript(existing.Path)
	if err != nil {
		return "", err
	}
	w.logger.Debug("script reloaded",
		logging.String("path", script.Path),
		logging.Int("bytes", len(script.Text)),
	)
	return "Reloaded " + script.Name, nil
}

// RunScript executes the loaded text of a script through the interpreter.
// Paths that are not loaded match nothing.
func (w *Workspace) RunScript(ctx context.Context, path string) (string, error) {
	script, ok := w.Script(path)
	if !ok {
		return "", nil
	}

	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	started := time.Now()
	output, err := w.run(runCtx, w.interpreter, script.Text)
	script.Runs++
	if err != nil {
		return "", fmt.Errorf("run %s: %w", script.Name, err)
	}
	w.logger.Debug("script ran",
		logging.String("path", script.Path),
		logging.Duration("duration", time.Since(started)),
		logging.String("output", output),
	)
	return "Ran " + script.Name, nil
}
