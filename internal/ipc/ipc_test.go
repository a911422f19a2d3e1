package ipc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wavecatch/internal/api"
	"wavecatch/internal/config"
	"wavecatch/internal/daemon"
	"wavecatch/internal/ipc"
	"wavecatch/internal/registry"
	"wavecatch/internal/services"
	"wavecatch/internal/services/ytdlp"
	"wavecatch/internal/testsupport"
)

type harness struct {
	cfg     *config.Config
	daemon  *daemon.Daemon
	client  *ipc.Client
	logPath string
}

func startHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubYTDLP(testsupport.FakeYTDLP))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	reg := registry.New(registry.Options{
		Downloader: ytdlp.New(ytdlp.Options{Binary: cfg.Tools.YTDLPBinary}),
		Defaults:   registry.Defaults{OutputDir: cfg.Paths.OutputDir},
	})
	d, err := daemon.New(cfg, reg, nil, nil, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return &harness{cfg: cfg, daemon: d, client: client, logPath: logPath}
}

func waitFinished(t *testing.T, client *ipc.Client, id string) api.Job {
	t.Helper()
	var job api.Job
	testsupport.WaitFor(t, 10*time.Second, "job "+id, func() bool {
		resp, err := client.Job(context.Background(), id)
		if err != nil {
			t.Fatalf("Job RPC failed: %v", err)
		}
		job = resp.Job
		return job.State.Kind == "completed" || job.State.Kind == "error"
	})
	return job
}

func TestIPCServerClient(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()

	status, err := h.client.Status(ctx)
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}

	submitted, err := h.client.Submit(ctx, ipc.SubmitRequest{URL: "https://www.youtube.com/watch?v=abc"})
	if err != nil {
		t.Fatalf("Submit RPC failed: %v", err)
	}
	if submitted.Job.Title != "YouTube Video" {
		t.Fatalf("expected heuristic title, got %q", submitted.Job.Title)
	}
	done := waitFinished(t, h.client, submitted.Job.ID)
	if done.State.Kind != "completed" || done.Title != "Test Song" {
		t.Fatalf("unexpected final job %+v", done)
	}

	failed, err := h.client.Submit(ctx, ipc.SubmitRequest{URL: "https://example.com/fail"})
	if err != nil {
		t.Fatalf("Submit RPC failed: %v", err)
	}
	failedJob := waitFinished(t, h.client, failed.Job.ID)
	if !strings.HasPrefix(failedJob.State.Message, "yt-dlp exited with code 1") {
		t.Fatalf("unexpected failure message %q", failedJob.State.Message)
	}
	if failedJob.LastError == "" {
		t.Fatal("expected item error to be recorded")
	}

	list, err := h.client.Jobs(ctx)
	if err != nil {
		t.Fatalf("Jobs RPC failed: %v", err)
	}
	if len(list.Jobs) != 2 || list.Jobs[0].ID != failed.Job.ID {
		t.Fatalf("expected newest-first list, got %+v", list.Jobs)
	}

	watch, err := h.client.Watch(ctx, ipc.WatchRequest{Since: 0, Limit: 500})
	if err != nil {
		t.Fatalf("Watch RPC failed: %v", err)
	}
	if len(watch.Updates) == 0 || watch.Updates[0].Type != "added" {
		t.Fatalf("unexpected updates %+v", watch.Updates)
	}

	cancelResp, err := h.client.Cancel(ctx, submitted.Job.ID)
	if err != nil {
		t.Fatalf("Cancel RPC failed: %v", err)
	}
	if cancelResp.Cancelled || cancelResp.Job.State.Kind != "completed" {
		t.Fatalf("cancel of a completed job must be a no-op, got %+v", cancelResp)
	}

	removed, err := h.client.Remove(ctx, []string{submitted.Job.ID})
	if err != nil || removed.Removed != 1 {
		t.Fatalf("Remove RPC: %+v %v", removed, err)
	}
	cleared, err := h.client.Clear(ctx)
	if err != nil || cleared.Removed != 1 {
		t.Fatalf("Clear RPC: %+v %v", cleared, err)
	}

	notifyResp, err := h.client.TestNotification(ctx)
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp.Sent || notifyResp.Message == "" {
		t.Fatalf("expected skipped notification, got %#v", notifyResp)
	}
}

func TestIPCErrorsKeepTheirClass(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()

	_, err := h.client.Submit(ctx, ipc.SubmitRequest{URL: "notaurl"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.Message(err) != "Invalid URL format." {
		t.Fatalf("unexpected message %q", services.Message(err))
	}

	_, err = h.client.Job(ctx, "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIPCAnalyze(t *testing.T) {
	h := startHarness(t)

	resp, err := h.client.Analyze(context.Background(), "https://example.com/track")
	if err != nil {
		t.Fatalf("Analyze RPC failed: %v", err)
	}
	if resp.Summary.Message != "single item detected" {
		t.Fatalf("unexpected summary %+v", resp.Summary)
	}
}

func TestIPCLogTail(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()

	if err := os.WriteFile(h.logPath, []byte("first job=a\nsecond job=b\nthird job=a\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	logResp, err := h.client.LogTail(ctx, ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second job=b" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	filtered, err := h.client.LogTail(ctx, ipc.LogTailRequest{Offset: -1, Limit: 5, JobID: "job=a"})
	if err != nil {
		t.Fatalf("LogTail filtered failed: %v", err)
	}
	if len(filtered.Lines) != 2 {
		t.Fatalf("unexpected filtered lines: %#v", filtered.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		defer close(followDone)
		client, err := ipc.Dial(h.cfg.SocketPath())
		if err != nil {
			t.Errorf("dial: %v", err)
			return
		}
		defer client.Close()
		resp, err := client.LogTail(ctx, ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 2000})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(h.logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("append log: %v", err)
	}
	_, _ = f.WriteString("fourth\n")
	_ = f.Close()

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}
}

func TestIPCStopShutsDownDaemon(t *testing.T) {
	h := startHarness(t)

	stopResp, err := h.client.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}
	select {
	case <-h.daemon.Done():
	case <-time.After(time.Second):
		t.Fatal("expected daemon Done to close")
	}
}

func TestClientCallHonorsContext(t *testing.T) {
	h := startHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.client.Watch(ctx, ipc.WatchRequest{Since: 1 << 40, WaitMillis: 5000}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
