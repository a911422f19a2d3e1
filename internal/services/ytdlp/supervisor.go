package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"wavecatch/internal/jobs"
	"wavecatch/internal/logging"
	"wavecatch/internal/progress"
)

const (
	defaultBinary       = "yt-dlp"
	defaultAudioFormat  = "mp3"
	defaultRetries      = 3
	defaultProbeTimeout = 2 * time.Minute
	// waitDelay bounds how long Wait lingers on I/O after the process exits.
	waitDelay = 5 * time.Second
)

// Options configures a Supervisor.
type Options struct {
	Binary       string
	FFmpegDir    string
	AudioFormat  string
	Retries      int
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Events receives the output of one supervised run. Nil hooks are skipped.
type Events struct {
	// State receives every job state in output order.
	State func(jobs.State)
	// Title receives the file stem of each download destination.
	Title func(string)
	// Items receives the playlist length when yt-dlp reports one.
	Items func(int)
	// ItemError receives ERROR lines. They are never emitted as a State:
	// with --ignore-errors yt-dlp skips the failing item and continues.
	// The exit code is the only source of the terminal state.
	ItemError func(string)
}

func (e Events) state(s jobs.State) {
	if e.State != nil {
		e.State(s)
	}
}

func (e Events) title(v string) {
	if e.Title != nil {
		e.Title(v)
	}
}

func (e Events) items(n int) {
	if e.Items != nil {
		e.Items(n)
	}
}

func (e Events) itemError(msg string) {
	if e.ItemError != nil {
		e.ItemError(msg)
	}
}

// Supervisor runs yt-dlp downloads and probes.
type Supervisor struct {
	binary       string
	ffmpegDir    string
	audioFormat  string
	retries      int
	probeTimeout time.Duration
	logger       *slog.Logger
}

// New constructs a Supervisor, filling unset options with defaults.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		binary:       strings.TrimSpace(opts.Binary),
		ffmpegDir:    strings.TrimSpace(opts.FFmpegDir),
		audioFormat:  strings.TrimSpace(opts.AudioFormat),
		retries:      opts.Retries,
		probeTimeout: opts.ProbeTimeout,
		logger:       logging.NewComponentLogger(opts.Logger, "ytdlp"),
	}
	if s.binary == "" {
		s.binary = defaultBinary
	}
	if s.audioFormat == "" {
		s.audioFormat = defaultAudioFormat
	}
	if s.retries <= 0 {
		s.retries = defaultRetries
	}
	if s.probeTimeout <= 0 {
		s.probeTimeout = defaultProbeTimeout
	}
	return s
}

// Binary returns the executable the supervisor launches.
func (s *Supervisor) Binary() string {
	return s.binary
}

// Run downloads req, reporting states through events. It returns ctx.Err()
// when cancelled and nil otherwise; download failures are reported as a
// terminal error state, never as a returned error.
func (s *Supervisor) Run(ctx context.Context, req Request, events Events) error {
	logger := logging.WithContext(ctx, s.logger)
	events.state(jobs.Analyzing(jobs.MessageAnalyzingLink))

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		logging.ErrorWithContext(logger, "output directory unavailable", "download_start_failed",
			logging.String("output_dir", req.OutputDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.output_dir and its permissions"),
		)
		events.state(jobs.Failed("Download error: " + err.Error()))
		return nil
	}

	args := s.downloadArgs(req)
	proc, err := s.start(ctx, args, req.OutputDir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logging.ErrorWithContext(logger, "yt-dlp failed to start", "download_start_failed",
			logging.String("binary", s.binary),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install yt-dlp or set tools.ytdlp_binary"),
		)
		events.state(jobs.Failed(downloadStartMessage(err)))
		return nil
	}
	defer proc.release()

	logger.Info("download started",
		logging.String(logging.FieldEventType, "download_started"),
		logging.Command(s.binary, args),
		logging.Int("pid", proc.pid()),
	)

	sampler := logging.NewProgressSampler(5)
	recent := newTail(tailSize)
	readErr := proc.readLines(ctx, func(line string) {
		recent.add(line)
		logger.Debug("yt-dlp output", logging.String("line", line))
		if title, ok := progress.TitleFromDestination(line); ok {
			events.title(title)
		}
		if count, ok := progress.PlaylistCount(line); ok {
			events.items(count)
		}
		state, ok := progress.Parse(line)
		if !ok {
			return
		}
		if state.Kind == jobs.KindError {
			logging.WarnWithContext(logger, "yt-dlp reported an item error", "download_item_error",
				logging.String("error_message", state.Message),
				logging.String(logging.FieldImpact, "the item is skipped; the download continues"),
			)
			events.itemError(state.Message)
			return
		}
		if sampler.ShouldLog(state.Percent(), string(state.Kind)) {
			logger.Info("download progress",
				logging.String(logging.FieldProgressStage, string(state.Kind)),
				logging.Float64(logging.FieldProgressPercent, state.Percent()),
				logging.String("speed", state.Speed),
				logging.String(logging.FieldProgressETA, state.ETA),
			)
		}
		events.state(state)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("download cancelled", logging.String(logging.FieldEventType, "download_cancelled"))
		return ctxErr
	}
	if readErr != nil {
		logging.ErrorWithContext(logger, "reading yt-dlp output failed", "download_read_failed", logging.Error(readErr))
		events.state(jobs.Failed("Download error: read output: " + readErr.Error()))
		return nil
	}

	waitErr := proc.wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if waitErr == nil {
		logger.Info("download completed",
			logging.String(logging.FieldEventType, "download_completed"),
			logging.String("output_dir", req.OutputDir),
			logging.Int("progress_lines_suppressed", sampler.Suppressed()),
		)
		events.state(jobs.Completed(req.OutputDir))
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		logging.ErrorWithContext(logger, "waiting for yt-dlp failed", "download_wait_failed", logging.Error(waitErr))
		events.state(jobs.Failed("Download error: " + waitErr.Error()))
		return nil
	}
	message := exitMessage(exitErr.ExitCode(), recent)
	logging.ErrorWithContext(logger, "yt-dlp exited with failure", "download_failed",
		logging.Int("exit_code", exitErr.ExitCode()),
		logging.String("error_message", recent.String()),
		logging.String(logging.FieldErrorHint, "inspect the trailing output; the source may be private or unavailable"),
	)
	events.state(jobs.Failed(message))
	return nil
}

// Analyze probes url without downloading. It emits Analyzing first and then
// exactly one summary: the item count, a single-item notice, or an error.
func (s *Supervisor) Analyze(ctx context.Context, url string, emit func(jobs.State)) error {
	events := Events{State: emit}
	logger := logging.WithContext(ctx, s.logger)
	events.state(jobs.Analyzing(jobs.MessageAnalyzingPlaylist))

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	proc, err := s.start(probeCtx, s.probeArgs(url), "")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logging.ErrorWithContext(logger, "yt-dlp probe failed to start", "analysis_start_failed",
			logging.String("binary", s.binary),
			logging.Error(err),
		)
		events.state(jobs.Failed(analysisStartMessage(err)))
		return nil
	}
	defer proc.release()

	titles := 0
	readErr := proc.readLines(probeCtx, func(line string) {
		logger.Debug("yt-dlp probe output", logging.String("line", line))
		if strings.HasPrefix(line, "ERROR") {
			return
		}
		titles++
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var waitErr error
	if readErr == nil && probeCtx.Err() == nil {
		waitErr = proc.wait()
	}

	switch {
	case probeCtx.Err() != nil:
		logging.WarnWithContext(logger, "yt-dlp probe timed out", "analysis_timeout",
			logging.Duration("timeout", s.probeTimeout),
			logging.String(logging.FieldImpact, "no preview is available for this link"),
		)
		events.state(jobs.Failed(jobs.MessageAnalysisFailed))
	case readErr != nil || waitErr != nil:
		logger.Info("analysis failed",
			logging.String(logging.FieldEventType, "analysis_failed"),
			logging.Int("titles", titles),
			logging.Error(errors.Join(readErr, waitErr)),
		)
		events.state(jobs.Failed(jobs.MessageAnalysisFailed))
	case titles == 0:
		events.state(jobs.Analyzing(jobs.MessageSingleItem))
	default:
		logger.Info("analysis completed",
			logging.String(logging.FieldEventType, "analysis_completed"),
			logging.Int("titles", titles),
		)
		events.state(jobs.Analyzing(ItemsFoundMessage(titles)))
	}
	return nil
}

// ItemsFoundMessage renders the analysis summary for count titles.
func ItemsFoundMessage(count int) string {
	if count == 1 {
		return "1 item found"
	}
	return fmt.Sprintf("%d items found", count)
}

func exitMessage(code int, recent *tail) string {
	msg := fmt.Sprintf("yt-dlp exited with code %d", code)
	if out := recent.String(); out != "" {
		msg += "\n" + out
	}
	return msg
}

type process struct {
	cmd    *exec.Cmd
	output *os.File
	done   bool
}

// start launches the binary with stdout and stderr sharing one pipe.
// Cancelling ctx kills the whole process group.
func (s *Supervisor) start(ctx context.Context, args []string, dir string) (*process, error) {
	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Dir = dir
	configureProcess(cmd)
	cmd.Cancel = func() error { return killProcess(cmd) }
	cmd.WaitDelay = waitDelay

	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer
	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, err
	}
	// The child holds its own copy; closing ours lets the reader see EOF.
	_ = writer.Close()
	return &process{cmd: cmd, output: reader}, nil
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// readLines calls fn for each non-blank output line until EOF, a read error,
// or cancellation, checking ctx at every line boundary.
func (p *process) readLines(ctx context.Context, fn func(string)) error {
	scanner := newLineScanner(p.output)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}

func (p *process) wait() error {
	err := p.cmd.Wait()
	p.done = true
	return err
}

// release kills and reaps the process if it has not been waited for, then
// closes the output pipe. It runs on every exit path.
func (p *process) release() {
	if !p.done {
		_ = killProcess(p.cmd)
		_ = p.cmd.Wait()
		p.done = true
	}
	_ = p.output.Close()
}
