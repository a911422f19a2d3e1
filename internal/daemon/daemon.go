package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"wavecatch/internal/api"
	"wavecatch/internal/config"
	"wavecatch/internal/deps"
	"wavecatch/internal/jobs"
	"wavecatch/internal/logging"
	"wavecatch/internal/notifications"
	"wavecatch/internal/preflight"
	"wavecatch/internal/registry"
	"wavecatch/internal/services"
)

// Daemon coordinates the job registry and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *registry.Registry
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	LogPath      string
	OutputDir    string
	ActiveJobs   int
	Jobs         []jobs.Job
	Dependencies []deps.Status
}

// New constructs a daemon around an existing registry.
func New(cfg *config.Config, reg *registry.Registry, notifier notifications.Service, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || reg == nil {
		return nil, errors.New("daemon requires config and registry")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		registry: reg,
		notifier: notifier,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		done:     make(chan struct{}),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and starts the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another wavecatch daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("wavecatch daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels running jobs, stops the API, and releases the daemon lock.
// Done is closed once Stop has finished.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.registry.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("wavecatch daemon stopped")
	d.doneOnce.Do(func() { close(d.done) })
}

// Close stops the daemon if it is running and shuts down the registry.
func (d *Daemon) Close() {
	d.Stop()
	d.registry.Close()
}

// Done is closed after Stop completes, letting the runtime exit when a
// client requests shutdown.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Submit applies configured defaults to req and registers the job.
func (d *Daemon) Submit(ctx context.Context, req api.SubmitRequest) (jobs.Job, error) {
	quality := d.cfg.Downloads.Quality
	if strings.TrimSpace(req.Quality) != "" {
		quality = req.Quality
	}
	parsed, err := jobs.ParseQuality(quality)
	if err != nil {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "", "", err.Error(), nil)
	}

	outputDir := d.cfg.Paths.OutputDir
	if strings.TrimSpace(req.OutputDir) != "" {
		expanded, err := config.ExpandPath(strings.TrimSpace(req.OutputDir))
		if err != nil {
			return jobs.Job{}, services.Wrap(services.ErrValidation, "", "", "Invalid output directory.", err)
		}
		outputDir = expanded
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return jobs.Job{}, services.Wrap(services.ErrConfiguration, "", "", "Output directory is not writable.", err)
	}

	return d.registry.Submit(ctx, registry.Request{
		URL:            req.URL,
		Quality:        parsed,
		OutputDir:      outputDir,
		EmbedThumbnail: boolOr(req.EmbedThumbnail, d.cfg.Downloads.EmbedThumbnail),
		EmbedMetadata:  boolOr(req.EmbedMetadata, d.cfg.Downloads.EmbedMetadata),
	})
}

// Cancel stops a running job. It returns false for jobs that already
// finished and a not-found error for unknown ids.
func (d *Daemon) Cancel(id string) (bool, error) {
	if _, ok := d.registry.Get(id); !ok {
		return false, jobNotFound(id)
	}
	return d.registry.Cancel(id), nil
}

// Analyze probes url and returns every state it emitted, summary last.
func (d *Daemon) Analyze(ctx context.Context, url string) ([]jobs.State, error) {
	var states []jobs.State
	err := d.registry.Analyze(ctx, url, func(s jobs.State) {
		states = append(states, s)
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

// Jobs returns the current job collection, newest first.
func (d *Daemon) Jobs() []jobs.Job {
	return d.registry.Snapshot()
}

// Job returns a single job by id.
func (d *Daemon) Job(id string) (jobs.Job, error) {
	job, ok := d.registry.Get(id)
	if !ok {
		return jobs.Job{}, jobNotFound(id)
	}
	return job, nil
}

// Remove drops a finished job.
func (d *Daemon) Remove(id string) error {
	return d.registry.Remove(id)
}

// ClearFinished drops every finished job.
func (d *Daemon) ClearFinished() int {
	return d.registry.ClearFinished()
}

// Updates exposes the registry change log.
func (d *Daemon) Updates() *registry.Hub {
	return d.registry.Updates()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the bound HTTP API address, or "" when disabled.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		OutputDir:    d.cfg.Paths.OutputDir,
		ActiveJobs:   d.registry.Active(),
		Jobs:         d.registry.Snapshot(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
}

// API converts the status into its transport form.
func (s Status) API() api.DaemonStatus {
	return api.DaemonStatus{
		Running:      s.Running,
		PID:          s.PID,
		LockFilePath: s.LockFilePath,
		LogPath:      s.LogPath,
		OutputDir:    s.OutputDir,
		ActiveJobs:   s.ActiveJobs,
		JobCounts:    api.JobCounts(s.Jobs),
		Dependencies: api.FromDependencies(s.Dependencies),
	}
}

func jobNotFound(id string) error {
	return services.Wrap(services.ErrNotFound, "", "", "job "+id+" not found", nil)
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
