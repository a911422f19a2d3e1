// Package logging assembles structured slog loggers and formatting helpers used
// across wavecatch.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so supervisor and registry code
// tag log lines with job and request IDs automatically. The package also
// provides a no-op logger for tests and a progress sampler that keeps
// per-line download progress from flooding the log.
package logging
