// Package progress interprets yt-dlp console output.
//
// Parse turns one output line into at most one job state. It is pure and
// never fails: lines that match nothing simply produce no event. The
// auxiliary extractors pull the destination title and playlist length out of
// lines that Parse ignores.
package progress
