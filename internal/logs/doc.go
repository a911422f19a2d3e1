// Package logs tails the daemon log file for `wavecatch logs`.
//
// Negative offsets return the last N lines; non-negative offsets read forward
// and, in follow mode, poll until new lines arrive or the wait elapses. A
// filter narrows output to lines mentioning one job.
package logs
