//go:build unix

package ipc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"piperun/internal/config"
	"piperun/internal/daemon"
	"piperun/internal/fifo"
	"piperun/internal/history"
	"piperun/internal/ipc"
	"piperun/internal/logging"
	"piperun/internal/testsupport"
	"piperun/internal/workspace"
)

func startServer(t *testing.T, cfg *config.Config) *ipc.Client {
	t.Helper()
	testsupport.EnsureStateDir(t, cfg)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	logger := logging.NewNop()
	d, err := daemon.New(cfg, store, logger, nil,
		daemon.WithWorkspaceOptions(workspace.WithRunner(func(context.Context, []string, string) (string, error) {
			return "", nil
		})))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func TestIPCSessionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScripts(map[string]string{"foo.sh": "true\n"}))
	client := startServer(t, cfg)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.Session.Running || status.Session.Label != "Start remote" {
		t.Fatalf("idle session = %+v", status.Session)
	}
	if len(status.Scripts) != 1 || status.Scripts[0].Name != "foo.sh" {
		t.Fatalf("scripts = %+v", status.Scripts)
	}

	stopIdle, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop on idle: %v", err)
	}
	if stopIdle.Requested || stopIdle.Message != "no session running" {
		t.Fatalf("Stop on idle = %+v", stopIdle)
	}

	startResp, err := client.Start(ipc.StartRequest{})
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}
	pipePath := startResp.Session.PipePath
	if !strings.HasSuffix(pipePath, "/script_run_pipe") {
		t.Fatalf("pipe path = %q", pipePath)
	}

	again, err := client.Start(ipc.StartRequest{})
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if again.Started || again.Message != "session already running" {
		t.Fatalf("second Start = %+v", again)
	}

	w, err := fifo.Dial(pipePath)
	if err != nil {
		t.Fatalf("fifo.Dial: %v", err)
	}
	if err := w.WriteLine("run_script " + cfg.Workspace.Scripts[0]); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	_ = w.Close()

	var entries []ipc.HistoryEntry
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.History(ipc.HistoryRequest{SessionID: startResp.Session.ID})
		if err != nil {
			t.Fatalf("History RPC failed: %v", err)
		}
		if entries = resp.Entries; len(entries) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %+v", entries)
	}
	if entries[0].Verb != "run_script" || entries[0].Outcome != "ok" || entries[0].Message != "Ran foo.sh" {
		t.Fatalf("entry = %+v", entries[0])
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopResp.Requested {
		t.Fatalf("expected Stop to be requested, got: %#v", stopResp)
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		status, err = client.Status()
		if err != nil {
			t.Fatalf("Status RPC failed: %v", err)
		}
		if !status.Session.Running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session did not stop")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status.Session.Label != "Start remote" {
		t.Fatalf("label after stop = %q", status.Session.Label)
	}
}

func TestIPCStartWithPipePathAndFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := startServer(t, cfg)

	resp, err := client.Start(ipc.StartRequest{PipePath: "${tmp}/missing/dir/pipe"})
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if resp.Started {
		t.Fatal("start into a missing directory succeeded")
	}
	if !strings.Contains(resp.Message, "startup failure") {
		t.Fatalf("message = %q", resp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.PipeTemplate != "${tmp}/missing/dir/pipe" {
		t.Fatalf("pipe template = %q", status.PipeTemplate)
	}
	if len(status.Reports) != 1 || status.Reports[0].Severity != "ERROR" {
		t.Fatalf("reports = %+v", status.Reports)
	}
	if status.Session.LastError == "" {
		t.Fatal("last error not reported")
	}
}

func TestIPCTestNotificationAndHistoryValidation(t *testing.T) {
	client := startServer(t, testsupport.NewConfig(t))

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if resp.Sent || resp.Message != "ntfy topic not configured" {
		t.Fatalf("TestNotification = %+v", resp)
	}

	if _, err := client.History(ipc.HistoryRequest{Limit: -1}); err == nil {
		t.Fatal("expected error for negative limit")
	}
}
