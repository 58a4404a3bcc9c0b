package preflight

import (
	"context"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"piperun/internal/config"
)

const maxConcurrentChecks = 4

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for cfg concurrently and returns
// the results in a stable order. The ntfy check only runs when a topic is
// configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	home, _ := os.UserHomeDir()

	checks := []func() []Result{
		func() []Result { return []Result{CheckDirectoryAccess("State directory", cfg.Paths.StateDir)} },
		func() []Result { return []Result{CheckInterpreter(cfg.Workspace.Interpreter)} },
		func() []Result { return []Result{CheckPipeDirectory(cfg.Pipe.Path, home)} },
		func() []Result { return []Result{CheckAddonsDir(cfg.Workspace.AddonsDir)} },
		func() []Result { return CheckScripts(cfg.Workspace.Scripts) },
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		checks = append(checks, func() []Result { return []Result{CheckNtfy(ctx, topic)} })
	}

	slots := make([][]Result, len(checks))
	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)
	for i, check := range checks {
		g.Go(func() error {
			slots[i] = check()
			return nil
		})
	}
	_ = g.Wait()

	var results []Result
	for _, slot := range slots {
		results = append(results, slot...)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
