// Package registry orchestrates download jobs.
//
// A Registry accepts submissions, runs one supervised yt-dlp process per job,
// routes cancellation, and publishes an immutable snapshot of every job after
// each change. Readers load the current snapshot without locking; a single
// writer mutex serializes state merges so no job's update can clobber another
// job's entry. Every change is also appended to a bounded Hub so observers
// (the IPC watch command, the HTTP events endpoint) can follow transitions in
// order.
package registry
