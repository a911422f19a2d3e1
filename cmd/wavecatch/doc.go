// Package main hosts the wavecatch CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into IPC calls against
// the daemon: submitting downloads, watching job updates, tailing logs, and
// managing the daemon process itself. The hidden `daemon` command runs the
// daemon in the foreground.
//
// Presentation lives here: tables, colour, state labels, and the mapping of
// raw yt-dlp errors to friendly categories. Job semantics stay in the
// internal packages.
package main
