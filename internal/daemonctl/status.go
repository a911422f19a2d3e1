package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wavecatch/internal/api"
	"wavecatch/internal/config"
	"wavecatch/internal/ipc"
	"wavecatch/internal/preflight"
)

// Snapshot is everything `wavecatch status` renders.
type Snapshot struct {
	Daemon            api.DaemonStatus
	SystemChecks      []api.StatusLine
	Paths             []api.StatusLine
	DependencySummary api.DependencySummary
}

// BuildStatusSnapshot collects daemon status and falls back to local checks
// when the daemon is offline.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snapshot := &Snapshot{}

	client, err := ipc.Dial(cfg.SocketPath())
	if err == nil {
		defer client.Close()
		queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if resp, statusErr := client.Status(queryCtx); statusErr == nil {
			snapshot.Daemon = *resp
		}
		cancel()
	}

	if len(snapshot.Daemon.Dependencies) == 0 {
		snapshot.Daemon.Dependencies = ResolveDependencies(cfg)
	}
	if snapshot.Daemon.OutputDir == "" {
		snapshot.Daemon.OutputDir = cfg.Paths.OutputDir
	}

	snapshot.SystemChecks = BuildSystemChecks(ctx, cfg, snapshot.Daemon)
	snapshot.Paths = BuildPathChecks(cfg)
	snapshot.DependencySummary = BuildDependencySummary(snapshot.Daemon.Dependencies)
	return snapshot, nil
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	return api.FromDependencies(preflight.CheckSystemDeps(cfg))
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(ctx context.Context, cfg *config.Config, status api.DaemonStatus) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 4)
	if status.Running {
		lines = append(lines, api.StatusLine{Label: "Wavecatch", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d)", status.PID)})
		detail := "Idle"
		if status.ActiveJobs > 0 {
			detail = fmt.Sprintf("%d active", status.ActiveJobs)
		}
		lines = append(lines, api.StatusLine{Label: "Downloads", Severity: "ok", Detail: detail})
	} else {
		lines = append(lines, api.StatusLine{Label: "Wavecatch", Severity: "warn", Detail: "Not running (run `wavecatch start`)"})
	}

	if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
		detail := bind
		if cfg.Paths.APIToken != "" {
			detail += " (token required)"
		}
		lines = append(lines, api.StatusLine{Label: "HTTP API", Severity: "info", Detail: detail})
	} else {
		lines = append(lines, api.StatusLine{Label: "HTTP API", Severity: "info", Detail: "Disabled"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "warn", Detail: "Not configured"})
	} else {
		check := preflight.CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
		severity := "ok"
		if !check.Passed {
			severity = "warn"
		}
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: severity, Detail: check.Detail})
	}

	return lines
}

// BuildPathChecks resolves configured directory readiness.
func BuildPathChecks(cfg *config.Config) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Output", path: cfg.Paths.OutputDir},
		{label: "State", path: cfg.Paths.StateDir},
		{label: "Logs", path: cfg.Paths.LogDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, api.StatusLine{
			Label:    dir.label,
			Severity: severity,
			Detail:   result.Detail,
		})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []api.DependencyStatus) api.DependencySummary {
	if len(deps) == 0 {
		return api.DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return api.DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
