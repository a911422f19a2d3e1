// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates registry jobs and updates into transport-friendly
// DTOs that the CLI and other consumers can render without importing the
// orchestration packages.
//
// DTOs use camelCase JSON tags. Job state kinds are exposed as lowercase
// strings and timestamps use RFC3339 with milliseconds.
package api
