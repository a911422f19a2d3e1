// Package daemon coordinates the long-running wavecatch process.
//
// It wires configuration, the job registry, and notifications into a single
// lifecycle with flock-based locking to prevent multiple instances. The daemon
// applies configured defaults to submissions, reports dependency health, and
// serves the HTTP JSON API.
//
// Keep orchestration logic here: download supervision lives in
// services/ytdlp and job bookkeeping in registry, while the daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
