package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"wavecatch/internal/config"
	"wavecatch/internal/daemon"
	"wavecatch/internal/deps"
	"wavecatch/internal/ipc"
	"wavecatch/internal/jobs"
	"wavecatch/internal/logging"
	"wavecatch/internal/notifications"
	"wavecatch/internal/preflight"
	"wavecatch/internal/registry"
	"wavecatch/internal/services/ytdlp"
)

const currentLogName = "wavecatch.log"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the wavecatch daemon runtime loop. It returns when a signal
// arrives, cmdCtx ends, or a client stops the daemon over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("wavecatch-%s.log", runID))
	logger, err := buildLogger(cfg, opts, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", currentLogName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "wavecatch-*.log", Exclude: []string{logPath}},
	)

	tools := cfg.Locator().Resolve()
	logDependencySnapshot(logger, tools)
	for _, check := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldImpact, "downloads or notifications may fail"),
			logging.String(logging.FieldErrorHint, "run wavecatch status for details"),
		)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	notifier := notifications.NewService(cfg)
	reg, err := newRegistry(cfg, tools, notifier, logger)
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, reg, notifier, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("wavecatch daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("api", d.APIAddress()),
		logging.String("log_path", logPath),
	)

	select {
	case <-signalCtx.Done():
	case <-d.Done():
	}
	logger.Info("wavecatch daemon shutting down")
	return nil
}

// buildLogger writes the configured format to stdout and always keeps a JSON
// copy in the run log so `wavecatch logs --job` can filter by job_id.
func buildLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	console, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Writer:      os.Stdout,
		Development: opts.Development,
	})
	if err != nil {
		return nil, err
	}
	file, err := logging.New(logging.Options{
		Level:       level,
		Format:      "json",
		Path:        logPath,
		Development: opts.Development,
	})
	if err != nil {
		return nil, err
	}
	return logging.TeeLogger(console, file.Handler()), nil
}

func newRegistry(cfg *config.Config, tools deps.Tools, notifier notifications.Service, logger *slog.Logger) (*registry.Registry, error) {
	quality, err := jobs.ParseQuality(cfg.Downloads.Quality)
	if err != nil {
		return nil, fmt.Errorf("downloads.quality: %w", err)
	}
	supervisor := ytdlp.New(ytdlp.Options{
		Binary:       tools.YTDLP,
		FFmpegDir:    tools.FFmpegDir,
		AudioFormat:  cfg.Tools.AudioFormat,
		Retries:      cfg.Tools.Retries,
		ProbeTimeout: time.Duration(cfg.Tools.ProbeTimeout) * time.Second,
		Logger:       logger,
	})
	notifyTimeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	return registry.New(registry.Options{
		Downloader: supervisor,
		Notifier:   notifier,
		Logger:     logger,
		Defaults: registry.Defaults{
			OutputDir: cfg.Paths.OutputDir,
			Quality:   quality,
		},
		NotifyTimeout: notifyTimeout + 5*time.Second,
	}), nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, currentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, tools deps.Tools) {
	if logger == nil {
		return
	}
	statuses := deps.CheckBinaries(deps.Requirements(tools))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ytdlp_bundled", tools.Bundled),
		logging.String("ffmpeg_location", tools.FFmpegDir),
	}
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
