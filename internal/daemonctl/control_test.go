//go:build unix

package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"piperun/internal/daemon"
	"piperun/internal/ipc"
	"piperun/internal/logging"
	"piperun/internal/testsupport"
)

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}

func TestTerminateWhenNotRunning(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "piperun.sock")
	if _, err := Terminate(socket, nil, time.Second); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("err = %v", err)
	}
	if err := WaitForShutdown(socket, time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestEnsureStartedDetectsRunningDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.EnsureStateDir(t, cfg)
	d, err := daemon.New(cfg, nil, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	t.Cleanup(srv.Close)
	srv.Serve()

	result, err := EnsureStarted(cfg.SocketPath(), "", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning || result.PID != os.Getpid() {
		t.Fatalf("result = %+v", result)
	}
	if err := WaitForShutdown(cfg.SocketPath(), 50*time.Millisecond); err == nil {
		t.Fatal("expected WaitForShutdown to time out while serving")
	}
}

func TestSignalProcessRefusesSelf(t *testing.T) {
	if err := signalProcess(os.Getpid(), 0); err == nil {
		t.Fatal("expected refusal to signal current process")
	}
	if err := signalProcess(0, 0); err == nil {
		t.Fatal("expected error for unknown pid")
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "piperun.pid")
	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := readPID(path); err != nil || pid != 4242 {
		t.Fatalf("readPID = %d, %v", pid, err)
	}
	if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(path); err == nil {
		t.Fatal("expected error for malformed pid file")
	}
	if _, err := readPID(filepath.Join(dir, "missing.pid")); err == nil {
		t.Fatal("expected error for missing pid file")
	}
}
