// Package ytdlp supervises yt-dlp child processes.
//
// A Supervisor owns one external process per download or probe: it builds the
// command line, merges stdout and stderr into a single line stream, feeds every
// line through the progress parser, and reports typed job states. Each run
// ends in exactly one terminal state unless its context is cancelled, in which
// case the process group is killed and the run returns without one.
//
// Process cleanup is structural: every started process is killed and reaped
// before Run or Analyze returns, whatever path the read loop took.
package ytdlp
