// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs, which
// reuse the api package's job and status types. Error classes cross the
// socket as a "[code] message" prefix so the CLI can still match
// services.ErrValidation and friends. Client calls take a context so CLI
// commands fail fast when the daemon stops answering.
package ipc
