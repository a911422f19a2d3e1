package registry

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wavecatch/internal/jobs"
	"wavecatch/internal/logging"
	"wavecatch/internal/notifications"
	"wavecatch/internal/services"
	"wavecatch/internal/services/ytdlp"
)

const defaultNotifyTimeout = 15 * time.Second

var (
	ErrEmptyURL   = services.Wrap(services.ErrValidation, "", "", "Please enter a URL.", nil)
	ErrInvalidURL = services.Wrap(services.ErrValidation, "", "", "Invalid URL format.", nil)
	ErrClosed     = errors.New("registry closed")
)

// Downloader runs supervised yt-dlp processes. *ytdlp.Supervisor satisfies it.
type Downloader interface {
	Run(ctx context.Context, req ytdlp.Request, events ytdlp.Events) error
	Analyze(ctx context.Context, url string, emit func(jobs.State)) error
}

// Defaults fill unset Request fields.
type Defaults struct {
	OutputDir string
	Quality   jobs.Quality
}

// Options configures a Registry.
type Options struct {
	Downloader    Downloader
	Notifier      notifications.Service
	Logger        *slog.Logger
	Defaults      Defaults
	HubCapacity   int
	NotifyTimeout time.Duration
}

// Request is one submission.
type Request struct {
	URL            string
	Quality        jobs.Quality
	OutputDir      string
	EmbedThumbnail bool
	EmbedMetadata  bool
}

// Registry owns the job collection. The zero value is not usable; call New.
type Registry struct {
	downloader    Downloader
	notifier      notifications.Service
	logger        *slog.Logger
	defaults      Defaults
	notifyTimeout time.Duration
	hub           *Hub

	// snapshot holds an immutable newest-first slice; writers replace it
	// whole while holding mu.
	snapshot atomic.Pointer[[]jobs.Job]

	mu       sync.Mutex
	handles  map[string]*handle
	closed   bool
	wg       sync.WaitGroup
	notifyWG sync.WaitGroup
}

type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Registry.
func New(opts Options) *Registry {
	r := &Registry{
		downloader:    opts.Downloader,
		notifier:      opts.Notifier,
		logger:        logging.NewComponentLogger(opts.Logger, "registry"),
		defaults:      opts.Defaults,
		notifyTimeout: opts.NotifyTimeout,
		hub:           NewHub(opts.HubCapacity),
		handles:       make(map[string]*handle),
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(nil)
	}
	if r.notifyTimeout <= 0 {
		r.notifyTimeout = defaultNotifyTimeout
	}
	if r.defaults.Quality == "" {
		r.defaults.Quality = jobs.DefaultQuality
	}
	empty := []jobs.Job{}
	r.snapshot.Store(&empty)
	return r
}

// Updates exposes the sequenced change log.
func (r *Registry) Updates() *Hub {
	return r.hub
}

// Snapshot returns the current jobs, newest first. The slice is shared and
// must not be modified.
func (r *Registry) Snapshot() []jobs.Job {
	return *r.snapshot.Load()
}

// Get returns the job with id from the current snapshot.
func (r *Registry) Get(id string) (jobs.Job, bool) {
	for _, job := range r.Snapshot() {
		if job.ID == id {
			return job, true
		}
	}
	return jobs.Job{}, false
}

// ValidateURL trims raw and checks that it is an http or https URL.
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyURL
	}
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", ErrInvalidURL
	}
	return trimmed, nil
}

// Submit validates req, records a new idle job at the front of the
// collection, and starts its download. Validation failures never start a
// process.
func (r *Registry) Submit(ctx context.Context, req Request) (jobs.Job, error) {
	target, err := ValidateURL(req.URL)
	if err != nil {
		return jobs.Job{}, err
	}
	quality := req.Quality
	if quality == "" {
		quality = r.defaults.Quality
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = r.defaults.OutputDir
	}
	if outputDir == "" {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "", "", "Output directory is not set.", nil)
	}

	now := time.Now().UTC()
	job := jobs.Job{
		ID:             uuid.NewString(),
		URL:            target,
		Title:          titleFromURL(target),
		Quality:        quality,
		OutputDir:      outputDir,
		EmbedThumbnail: req.EmbedThumbnail,
		EmbedMetadata:  req.EmbedMetadata,
		State:          jobs.Idle(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The run outlives the submitting request.
	runCtx, cancel := context.WithCancel(services.WithJobID(context.WithoutCancel(ctx), job.ID))
	h := &handle{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return jobs.Job{}, ErrClosed
	}
	current := r.Snapshot()
	next := make([]jobs.Job, 0, len(current)+1)
	next = append(next, job)
	next = append(next, current...)
	r.snapshot.Store(&next)
	r.handles[job.ID] = h
	r.wg.Add(1)
	r.hub.Publish(Update{Type: UpdateAdded, Job: job})
	r.mu.Unlock()

	logging.WithContext(runCtx, r.logger).Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.URL(target),
		logging.String("quality", string(quality)),
		logging.String("output_dir", outputDir),
	)

	go r.run(runCtx, job, h)
	return job, nil
}

func (r *Registry) run(ctx context.Context, job jobs.Job, h *handle) {
	defer r.wg.Done()
	defer close(h.done)
	defer h.cancel()

	req := ytdlp.Request{
		URL:            job.URL,
		OutputDir:      job.OutputDir,
		Quality:        job.Quality,
		EmbedThumbnail: job.EmbedThumbnail,
		EmbedMetadata:  job.EmbedMetadata,
	}
	id := job.ID
	err := r.downloader.Run(ctx, req, ytdlp.Events{
		State: func(s jobs.State) { r.setState(id, s) },
		Title: func(title string) {
			r.update(id, func(j *jobs.Job) bool {
				if title == "" || j.Title == title {
					return false
				}
				j.Title = title
				return true
			})
		},
		Items: func(n int) {
			r.update(id, func(j *jobs.Job) bool {
				if n <= 0 || j.Items == n {
					return false
				}
				j.Items = n
				return true
			})
		},
		ItemError: func(msg string) {
			r.update(id, func(j *jobs.Job) bool {
				j.LastError = msg
				return true
			})
		},
	})

	// A run that stopped without a terminal state was cancelled, either by
	// Cancel (already marked) or by Close.
	final, ok := r.Get(id)
	if ok && !final.Finished() {
		msg := jobs.MessageCancelled
		if err == nil {
			msg = "Download ended without a result"
		}
		r.setState(id, jobs.Failed(msg))
	}

	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}

// Cancel stops the job with id. It reports false when the job is unknown or
// already finished; the state of a finished job is never changed. Cancel
// does not wait for the process to exit.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	h, ok := r.handles[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	cancelled := r.updateLocked(id, func(j *jobs.Job) bool {
		j.State = jobs.Failed(jobs.MessageCancelled)
		return true
	})
	r.mu.Unlock()
	if !cancelled {
		return false
	}
	h.cancel()
	r.logger.Info("job cancelled",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	return true
}

// Wait blocks until the job's supervised run has returned or ctx ends.
func (r *Registry) Wait(ctx context.Context, id string) error {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Analyze probes url without creating a job. emit receives the analyzing
// notice followed by one summary state.
func (r *Registry) Analyze(ctx context.Context, rawURL string, emit func(jobs.State)) error {
	target, err := ValidateURL(rawURL)
	if err != nil {
		return err
	}
	return r.downloader.Analyze(ctx, target, emit)
}

// Remove drops a finished job from the collection.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.Snapshot()
	idx := indexOf(current, id)
	if idx < 0 {
		return services.Wrap(services.ErrNotFound, "", "", "job "+id+" not found", nil)
	}
	removed := current[idx]
	if !removed.Finished() {
		return services.Wrap(services.ErrValidation, "", "", "job is still running; cancel it first", nil)
	}
	next := make([]jobs.Job, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	r.snapshot.Store(&next)
	r.hub.Publish(Update{Type: UpdateRemoved, Job: removed})
	return nil
}

// ClearFinished drops every finished job and returns how many were removed.
func (r *Registry) ClearFinished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.Snapshot()
	next := make([]jobs.Job, 0, len(current))
	var removed []jobs.Job
	for _, job := range current {
		if job.Finished() {
			removed = append(removed, job)
			continue
		}
		next = append(next, job)
	}
	if len(removed) == 0 {
		return 0
	}
	r.snapshot.Store(&next)
	for _, job := range removed {
		r.hub.Publish(Update{Type: UpdateRemoved, Job: job})
	}
	return len(removed)
}

// Active reports how many jobs have a running supervisor.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close rejects new submissions, cancels every running job, and waits for
// their supervisors and pending notifications to return.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.wg.Wait()
		r.notifyWG.Wait()
		return
	}
	r.closed = true
	pending := make([]*handle, 0, len(r.handles))
	for _, h := range r.handles {
		pending = append(pending, h)
	}
	r.mu.Unlock()

	for _, h := range pending {
		h.cancel()
	}
	r.wg.Wait()
	r.notifyWG.Wait()
}

func (r *Registry) setState(id string, state jobs.State) {
	var finished jobs.Job
	r.mu.Lock()
	changed := r.updateLocked(id, func(j *jobs.Job) bool {
		j.State = state
		if state.IsTerminal() {
			finished = *j
		}
		return true
	})
	r.mu.Unlock()
	if changed && state.IsTerminal() {
		r.finished(finished)
	}
}

func (r *Registry) update(id string, fn func(*jobs.Job) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateLocked(id, fn)
}

// updateLocked replaces the job with id by a modified copy. Finished jobs are
// immutable, so late events from a terminating process are dropped.
func (r *Registry) updateLocked(id string, fn func(*jobs.Job) bool) bool {
	current := r.Snapshot()
	idx := indexOf(current, id)
	if idx < 0 || current[idx].Finished() {
		return false
	}
	job := current[idx]
	if !fn(&job) {
		return false
	}
	job.UpdatedAt = time.Now().UTC()
	next := make([]jobs.Job, len(current))
	copy(next, current)
	next[idx] = job
	r.snapshot.Store(&next)
	r.hub.Publish(Update{Type: UpdateChanged, Job: job})
	return true
}

func (r *Registry) finished(job jobs.Job) {
	logger := r.logger.With(logging.String(logging.FieldJobID, job.ID))
	switch {
	case job.State.Kind == jobs.KindCompleted:
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_completed"),
			logging.String("title", job.Title),
			logging.String("output_dir", job.State.OutputDir),
		)
		r.notify(logger, "job_completed", func(ctx context.Context) error {
			return r.notifier.NotifyJobCompleted(ctx, job.Title, job.State.OutputDir, job.Items)
		})
	case job.State.Message == jobs.MessageCancelled:
	default:
		logger.Info("job failed",
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String("title", job.Title),
			logging.String("error_message", job.State.Message),
		)
		r.notify(logger, "job_failed", func(ctx context.Context) error {
			return r.notifier.NotifyJobFailed(ctx, job.Title, job.State.Message)
		})
	}
}

// notify delivers a notification off the job's goroutine. Failures are
// logged and never reach job state.
func (r *Registry) notify(logger *slog.Logger, event string, send func(context.Context) error) {
	r.notifyWG.Add(1)
	go func() {
		defer r.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String("notification", event),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network reachability"),
				logging.String(logging.FieldImpact, "no push notification was delivered"),
			)
		}
	}()
}

func indexOf(list []jobs.Job, id string) int {
	for i, job := range list {
		if job.ID == id {
			return i
		}
	}
	return -1
}

// titleFromURL guesses a display title until yt-dlp reports the real one.
func titleFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "Media Download"
	}
	host := strings.ToLower(parsed.Hostname())
	switch {
	case host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		return "YouTube Video"
	case host == "soundcloud.com" || strings.HasSuffix(host, ".soundcloud.com"):
		return "SoundCloud Track"
	default:
		return "Media Download"
	}
}
