// Package services defines shared utilities consumed by the download
// orchestration core and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper, and Code which turns a
//     wrapped error into the stable class reported over IPC and HTTP.
//
// Subpackages wrap the external command-line tools the daemon drives.
package services
