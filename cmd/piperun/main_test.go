//go:build unix

package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"piperun/internal/testsupport"
)

func TestCLISessionCommands(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithScripts(map[string]string{"build.sh": "true\n"}))
	script := env.cfg.Workspace.Scripts[0]

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running (pid")
	requireContains(t, out, "idle, next pipe ${tmp}/script_run_pipe")
	requireContains(t, out, "1 loaded")

	if _, _, err := runCLI(t, []string{"send", "run_script", script}, env.socketPath, env.configPath); err == nil {
		t.Fatal("send without a session succeeded")
	}

	out, _, err = runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Listening on ")
	requireContains(t, out, "script_run_pipe")

	if _, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("second start err = %v", err)
	}

	out, _, err = runCLI(t, []string{"send", "run_script", script}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	requireContains(t, out, "Sent 1 command(s)")

	waitFor(t, 2*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"history"}, env.socketPath, env.configPath)
		return err == nil && strings.Contains(out, "Run Script")
	})
	out, _, err = runCLI(t, []string{"history", "--outcome", "ok"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Ran build.sh")
	requireContains(t, out, "build.sh")

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Stopping session...")

	waitFor(t, 2*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
		return err == nil && strings.Contains(out, "idle")
	})
	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop on idle: %v", err)
	}
	requireContains(t, out, "No session running")
}

func TestCLISendFromStdin(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithScripts(map[string]string{"a.sh": "true\n"}))
	script := env.cfg.Workspace.Scripts[0]

	if _, _, err := runCLI(t, []string{"start", "--pipe", "${tmp}/custom_pipe"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("start: %v", err)
	}

	input := strings.NewReader("reload_script " + script + "\r\n\nbogus\n")
	out, stderr, err := runCLIWithInput(t, input, []string{"send"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	requireContains(t, out, "Sent 2 command(s)")
	requireContains(t, out, "custom_pipe")
	requireContains(t, stderr, `"bogus" has no argument`)

	waitFor(t, 2*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"history", "--json"}, env.socketPath, env.configPath)
		return err == nil && strings.Contains(out, `"outcome": "malformed"`) && strings.Contains(out, `"Reloaded a.sh"`)
	})
}

func TestCLISendToExplicitPipeWithoutListener(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "nope")
	_, _, err := runCLI(t, []string{"send", "--pipe", missing, "run_script", "/x.sh"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing pipe")
	}
}

func TestCLIStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	requireContains(t, out, `"running": true`)
	requireContains(t, out, `"label": "Start remote"`)
}

func TestCLITestNotify(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Ntfy topic not configured")
}

func TestCLIReportsMissingDaemon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	socket := filepath.Join(t.TempDir(), "absent.sock")
	_, _, err := runCLI(t, []string{"status"}, socket, "")
	if err == nil {
		t.Fatal("expected error when daemon is not running")
	}
	requireContains(t, err.Error(), "piperun serve")
}

func TestCLIDaemonStopWhenNotRunning(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	socket := filepath.Join(home, "missing.sock")

	out, _, err := runCLI(t, []string{"daemon", "stop"}, socket, "")
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}
