package ipc

import "wavecatch/internal/api"

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "Wavecatch"

// SubmitRequest starts a download.
type SubmitRequest = api.SubmitRequest

// SubmitResponse returns the newly registered job.
type SubmitResponse struct {
	Job api.Job `json:"job"`
}

// CancelRequest stops a running job.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse reports whether the job was cancelled and its current state.
type CancelResponse struct {
	Cancelled bool    `json:"cancelled"`
	Job       api.Job `json:"job"`
}

// AnalyzeRequest probes a URL without creating a job.
type AnalyzeRequest = api.AnalyzeRequest

// AnalyzeResponse lists the probe states.
type AnalyzeResponse = api.AnalyzeResponse

// JobsRequest lists jobs.
type JobsRequest struct{}

// JobsResponse contains the job collection, newest first.
type JobsResponse struct {
	Jobs []api.Job `json:"jobs"`
}

// JobRequest fetches a single job by id.
type JobRequest struct {
	ID string `json:"id"`
}

// JobResponse contains a single job.
type JobResponse struct {
	Job api.Job `json:"job"`
}

// RemoveRequest removes finished jobs by id.
type RemoveRequest struct {
	IDs []string `json:"ids"`
}

// RemoveResponse reports how many jobs were removed.
type RemoveResponse struct {
	Removed int `json:"removed"`
}

// ClearRequest removes every finished job.
type ClearRequest struct{}

// ClearResponse reports how many jobs were removed.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// WatchRequest fetches job updates after Since, waiting up to WaitMillis for
// at least one when the log has nothing new.
type WatchRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	WaitMillis int    `json:"wait_millis"`
}

// WatchResponse contains updates and the cursor for the next request.
type WatchResponse = api.UpdateStreamResponse

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon status information.
type StatusResponse = api.DaemonStatus

// StopRequest shuts the daemon down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	JobID      string `json:"job_id,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
