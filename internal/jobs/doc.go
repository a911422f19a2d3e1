// Package jobs defines the download job model shared by the orchestration
// core, the daemon transports, and the CLI.
//
// A Job is an immutable value: updates replace the State wholesale. State is a
// closed set of kinds (idle, analyzing, downloading, converting, completed,
// error); completed and error are terminal.
package jobs
