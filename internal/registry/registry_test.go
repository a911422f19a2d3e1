package registry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wavecatch/internal/jobs"
	"wavecatch/internal/registry"
	"wavecatch/internal/services"
	"wavecatch/internal/services/ytdlp"
	"wavecatch/internal/testsupport"
)

type fakeDownloader struct {
	runs     atomic.Int32
	analyzes atomic.Int32
	run      func(ctx context.Context, req ytdlp.Request, events ytdlp.Events) error
	analyze  func(ctx context.Context, url string, emit func(jobs.State)) error
}

func (f *fakeDownloader) Run(ctx context.Context, req ytdlp.Request, events ytdlp.Events) error {
	f.runs.Add(1)
	if f.run == nil {
		events.State(jobs.Completed(req.OutputDir))
		return nil
	}
	return f.run(ctx, req, events)
}

func (f *fakeDownloader) Analyze(ctx context.Context, url string, emit func(jobs.State)) error {
	f.analyzes.Add(1)
	if f.analyze == nil {
		emit(jobs.Analyzing(jobs.MessageSingleItem))
		return nil
	}
	return f.analyze(ctx, url, emit)
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	err       error
}

func (n *recordingNotifier) NotifyJobCompleted(_ context.Context, title, _ string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, title)
	return n.err
}

func (n *recordingNotifier) NotifyJobFailed(_ context.Context, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, title)
	return n.err
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed), len(n.failed)
}

func newRegistry(t *testing.T, dl *fakeDownloader, notifier *recordingNotifier) *registry.Registry {
	t.Helper()
	opts := registry.Options{
		Downloader:  dl,
		Defaults:    registry.Defaults{OutputDir: t.TempDir()},
		HubCapacity: 4096,
	}
	if notifier != nil {
		opts.Notifier = notifier
	}
	r := registry.New(opts)
	t.Cleanup(r.Close)
	return r
}

func waitFinished(t *testing.T, r *registry.Registry, id string) jobs.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Wait(ctx, id); err != nil {
		t.Fatalf("wait for job %s: %v", id, err)
	}
	job, ok := r.Get(id)
	if !ok {
		t.Fatalf("job %s missing", id)
	}
	return job
}

func TestSubmitRejectsInvalidURLs(t *testing.T) {
	dl := &fakeDownloader{}
	r := newRegistry(t, dl, nil)

	tests := []struct {
		url  string
		want error
	}{
		{"", registry.ErrEmptyURL},
		{"   ", registry.ErrEmptyURL},
		{"youtube.com/watch?v=abc", registry.ErrInvalidURL},
		{"ftp://example.com/song.mp3", registry.ErrInvalidURL},
	}
	for _, tc := range tests {
		_, err := r.Submit(context.Background(), registry.Request{URL: tc.url})
		if !errors.Is(err, tc.want) || !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Submit(%q) error = %v, want %v", tc.url, err, tc.want)
		}
	}
	if got := services.Message(registry.ErrEmptyURL); got != "Please enter a URL." {
		t.Fatalf("unexpected message %q", got)
	}
	if n := dl.runs.Load(); n != 0 {
		t.Fatalf("expected no process to start, got %d runs", n)
	}
	if len(r.Snapshot()) != 0 {
		t.Fatalf("expected empty registry, got %v", r.Snapshot())
	}
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	notifier := &recordingNotifier{}
	dl := &fakeDownloader{run: func(_ context.Context, req ytdlp.Request, events ytdlp.Events) error {
		events.State(jobs.Analyzing(jobs.MessageAnalyzingLink))
		events.Items(2)
		events.Title("Night Drive")
		events.State(jobs.Downloading(0.5, "1.00MiB/s", "00:02"))
		events.ItemError("Private video")
		events.State(jobs.Converting(jobs.MessageConverting))
		events.State(jobs.Completed(req.OutputDir))
		return nil
	}}
	r := newRegistry(t, dl, notifier)

	job, err := r.Submit(context.Background(), registry.Request{
		URL:           " https://www.youtube.com/watch?v=abc ",
		Quality:       jobs.QualityMedium,
		EmbedMetadata: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.State.Kind != jobs.KindIdle || job.Title != "YouTube Video" || job.URL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("unexpected submitted job %+v", job)
	}

	final := waitFinished(t, r, job.ID)
	if final.State.Kind != jobs.KindCompleted || final.State.OutputDir != job.OutputDir {
		t.Fatalf("expected completed state, got %+v", final.State)
	}
	if final.Title != "Night Drive" || final.Items != 2 || final.LastError != "Private video" {
		t.Fatalf("unexpected job details %+v", final)
	}
	if final.Quality != jobs.QualityMedium || !final.EmbedMetadata || final.EmbedThumbnail {
		t.Fatalf("request options not carried: %+v", final)
	}

	r.Close()
	if completed, failed := notifier.counts(); completed != 1 || failed != 0 {
		t.Fatalf("expected one completion notification, got %d completed %d failed", completed, failed)
	}
}

func TestSubmitInsertsNewestFirst(t *testing.T) {
	r := newRegistry(t, &fakeDownloader{}, nil)
	urls := []string{
		"https://soundcloud.com/artist/track",
		"https://youtu.be/xyz",
		"https://example.com/audio",
	}
	var ids []string
	for _, u := range urls {
		job, err := r.Submit(context.Background(), registry.Request{URL: u})
		if err != nil {
			t.Fatalf("Submit(%s): %v", u, err)
		}
		ids = append(ids, job.ID)
		waitFinished(t, r, job.ID)
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected three jobs, got %d", len(snap))
	}
	wantTitles := []string{"Media Download", "YouTube Video", "SoundCloud Track"}
	for i, job := range snap {
		if job.ID != ids[len(ids)-1-i] {
			t.Fatalf("position %d holds %s, want %s", i, job.ID, ids[len(ids)-1-i])
		}
		if job.Title != wantTitles[i] {
			t.Fatalf("position %d title %q, want %q", i, job.Title, wantTitles[i])
		}
	}
}

func TestConcurrentJobsDoNotInterleave(t *testing.T) {
	const steps = 50
	dl := &fakeDownloader{run: func(_ context.Context, req ytdlp.Request, events ytdlp.Events) error {
		for i := 1; i <= steps; i++ {
			events.State(jobs.Downloading(float64(i)/steps, req.URL, fmt.Sprintf("%d", i)))
		}
		events.State(jobs.Completed(req.OutputDir))
		return nil
	}}
	r := newRegistry(t, dl, nil)

	urls := []string{"https://example.com/a", "https://example.com/b"}
	ids := make([]string, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := r.Submit(context.Background(), registry.Request{URL: u})
			if err != nil {
				t.Errorf("Submit(%s): %v", u, err)
				return
			}
			ids[i] = job.ID
		}()
	}
	wg.Wait()
	for _, id := range ids {
		waitFinished(t, r, id)
	}

	updates, _, err := r.Updates().Fetch(context.Background(), 0, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	owner := map[string]string{ids[0]: urls[0], ids[1]: urls[1]}
	last := map[string]float64{}
	seen := map[string]int{}
	for _, u := range updates {
		if u.Type != registry.UpdateChanged || u.Job.State.Kind != jobs.KindDownloading {
			continue
		}
		if u.Job.State.Speed != owner[u.Job.ID] {
			t.Fatalf("job %s received a state from %s", u.Job.ID, u.Job.State.Speed)
		}
		if u.Job.State.Progress <= last[u.Job.ID] {
			t.Fatalf("job %s progress went from %v to %v", u.Job.ID, last[u.Job.ID], u.Job.State.Progress)
		}
		last[u.Job.ID] = u.Job.State.Progress
		seen[u.Job.ID]++
	}
	for _, id := range ids {
		if seen[id] != steps {
			t.Fatalf("job %s: expected %d progress updates, got %d", id, steps, seen[id])
		}
		if job, _ := r.Get(id); job.State.Kind != jobs.KindCompleted {
			t.Fatalf("job %s not completed: %+v", id, job.State)
		}
	}
}

func TestCancelAfterCompletionIsNoop(t *testing.T) {
	r := newRegistry(t, &fakeDownloader{}, nil)
	job, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFinished(t, r, job.ID)

	if r.Cancel(job.ID) {
		t.Fatal("expected cancel of completed job to be a no-op")
	}
	if got, _ := r.Get(job.ID); got.State.Kind != jobs.KindCompleted {
		t.Fatalf("completed state overwritten: %+v", got.State)
	}
	if r.Cancel("missing") {
		t.Fatal("expected cancel of unknown id to be a no-op")
	}
}

func TestCancelInFlightDropsLateEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	started := make(chan struct{})
	dl := &fakeDownloader{run: func(ctx context.Context, req ytdlp.Request, events ytdlp.Events) error {
		events.State(jobs.Downloading(0.1, "", ""))
		close(started)
		<-ctx.Done()
		events.State(jobs.Downloading(0.2, "", ""))
		events.State(jobs.Completed(req.OutputDir))
		return ctx.Err()
	}}
	r := newRegistry(t, dl, notifier)

	job, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	if !r.Cancel(job.ID) {
		t.Fatal("expected cancel to take effect")
	}
	if got, _ := r.Get(job.ID); got.State.Kind != jobs.KindError || got.State.Message != jobs.MessageCancelled {
		t.Fatalf("expected cancelled state immediately, got %+v", got.State)
	}
	if r.Cancel(job.ID) {
		t.Fatal("expected second cancel to be a no-op")
	}

	final := waitFinished(t, r, job.ID)
	if final.State.Kind != jobs.KindError || final.State.Message != jobs.MessageCancelled {
		t.Fatalf("late events overwrote cancellation: %+v", final.State)
	}
	if r.Active() != 0 {
		t.Fatalf("expected no active jobs, got %d", r.Active())
	}
	r.Close()
	if completed, failed := notifier.counts(); completed != 0 || failed != 0 {
		t.Fatalf("cancelled job should not notify, got %d/%d", completed, failed)
	}
}

func TestNotificationFailureDoesNotAffectJob(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("ntfy down")}
	r := newRegistry(t, &fakeDownloader{}, notifier)
	job, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFinished(t, r, job.ID)
	r.Close()
	if got, _ := r.Get(job.ID); got.State.Kind != jobs.KindCompleted {
		t.Fatalf("notification failure changed state: %+v", got.State)
	}
}

func TestFailedJobNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	dl := &fakeDownloader{run: func(_ context.Context, _ ytdlp.Request, events ytdlp.Events) error {
		events.State(jobs.Failed("yt-dlp exited with code 1"))
		return nil
	}}
	r := newRegistry(t, dl, notifier)
	job, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFinished(t, r, job.ID)
	r.Close()
	if completed, failed := notifier.counts(); completed != 0 || failed != 1 {
		t.Fatalf("expected one failure notification, got %d/%d", completed, failed)
	}
}

func TestRunWithoutTerminalStateFails(t *testing.T) {
	dl := &fakeDownloader{run: func(context.Context, ytdlp.Request, ytdlp.Events) error { return nil }}
	r := newRegistry(t, dl, nil)
	job, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitFinished(t, r, job.ID)
	if final.State.Kind != jobs.KindError {
		t.Fatalf("expected error state, got %+v", final.State)
	}
}

func TestRemoveAndClearFinished(t *testing.T) {
	release := make(chan struct{})
	dl := &fakeDownloader{run: func(ctx context.Context, req ytdlp.Request, events ytdlp.Events) error {
		if req.URL == "https://example.com/slow" {
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		events.State(jobs.Completed(req.OutputDir))
		return nil
	}}
	r := newRegistry(t, dl, nil)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	slow, _ := r.Submit(context.Background(), registry.Request{URL: "https://example.com/slow"})
	a, _ := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	b, _ := r.Submit(context.Background(), registry.Request{URL: "https://example.com/b"})
	waitFinished(t, r, a.ID)
	waitFinished(t, r, b.ID)

	if err := r.Remove(slow.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected running job removal to fail, got %v", err)
	}
	if err := r.Remove("missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := r.Remove(a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := r.Get(a.ID); ok {
		t.Fatal("removed job still present")
	}
	if n := r.ClearFinished(); n != 1 {
		t.Fatalf("expected one cleared job, got %d", n)
	}
	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].ID != slow.ID {
		t.Fatalf("expected only the running job to remain, got %+v", snap)
	}
}

func TestCloseCancelsRunningJobs(t *testing.T) {
	dl := &fakeDownloader{run: func(ctx context.Context, _ ytdlp.Request, _ ytdlp.Events) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	r := newRegistry(t, dl, nil)
	job, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r.Close()

	got, _ := r.Get(job.ID)
	if got.State.Kind != jobs.KindError || got.State.Message != jobs.MessageCancelled {
		t.Fatalf("expected cancelled state after close, got %+v", got.State)
	}
	if _, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/b"}); !errors.Is(err, registry.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSubmitContextDoesNotCancelRun(t *testing.T) {
	r := newRegistry(t, &fakeDownloader{run: func(ctx context.Context, req ytdlp.Request, events ytdlp.Events) error {
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		events.State(jobs.Completed(req.OutputDir))
		return nil
	}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	job, err := r.Submit(ctx, registry.Request{URL: "https://example.com/a"})
	cancel()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if final := waitFinished(t, r, job.ID); final.State.Kind != jobs.KindCompleted {
		t.Fatalf("request cancellation leaked into the run: %+v", final.State)
	}
}

func TestAnalyzeValidatesAndBypassesRegistry(t *testing.T) {
	dl := &fakeDownloader{analyze: func(_ context.Context, url string, emit func(jobs.State)) error {
		emit(jobs.Analyzing(jobs.MessageAnalyzingPlaylist))
		emit(jobs.Analyzing(ytdlp.ItemsFoundMessage(3)))
		return nil
	}}
	r := newRegistry(t, dl, nil)

	if err := r.Analyze(context.Background(), "not a url", func(jobs.State) {}); !errors.Is(err, registry.ErrInvalidURL) {
		t.Fatalf("expected invalid url, got %v", err)
	}
	if dl.analyzes.Load() != 0 {
		t.Fatal("probe started for an invalid url")
	}

	var states []jobs.State
	if err := r.Analyze(context.Background(), "https://example.com/list", func(s jobs.State) { states = append(states, s) }); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(states) != 2 || states[1].Message != "3 items found" {
		t.Fatalf("unexpected analysis states %+v", states)
	}
	if len(r.Snapshot()) != 0 {
		t.Fatal("analysis must not create jobs")
	}
}

func TestSupervisedCancelKillsProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pidFile := cfg.Paths.StateDir + "/pid"
	stub := testsupport.WriteStub(t, t.TempDir(), "yt-dlp", fmt.Sprintf(`
mkdir -p %[1]q
echo $$ > %[2]q
echo "[download]   3.0%% of 5.00MiB at 1.00MiB/s ETA 00:05"
while true; do sleep 1; done
`, cfg.Paths.StateDir, pidFile))

	sup := ytdlp.New(ytdlp.Options{Binary: stub})
	r := registry.New(registry.Options{
		Downloader: sup,
		Defaults:   registry.Defaults{OutputDir: cfg.Paths.OutputDir},
	})
	t.Cleanup(r.Close)

	job, err := r.Submit(context.Background(), registry.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	testsupport.WaitFor(t, 10*time.Second, "download progress", func() bool {
		got, _ := r.Get(job.ID)
		return got.State.Kind == jobs.KindDownloading
	})

	if !r.Cancel(job.ID) {
		t.Fatal("expected cancel to take effect")
	}
	final := waitFinished(t, r, job.ID)
	if final.State.Message != jobs.MessageCancelled {
		t.Fatalf("expected cancelled state, got %+v", final.State)
	}
	assertProcessGone(t, pidFile)
}
