package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobState is the transport form of a job's lifecycle state.
type JobState struct {
	Kind      string  `json:"kind"`
	Message   string  `json:"message"`
	Progress  float64 `json:"progress"`
	Speed     string  `json:"speed"`
	ETA       string  `json:"eta"`
	OutputDir string  `json:"outputDir,omitempty"`
}

// Job describes a download job in a transport-friendly format.
type Job struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Quality        string   `json:"quality"`
	QualityLabel   string   `json:"qualityLabel"`
	OutputDir      string   `json:"outputDir"`
	EmbedThumbnail bool     `json:"embedThumbnail"`
	EmbedMetadata  bool     `json:"embedMetadata"`
	State          JobState `json:"state"`
	Items          int      `json:"items,omitempty"`
	LastError      string   `json:"lastError,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

// SubmitRequest carries a new download. Nil flags and empty strings take the
// configured defaults.
type SubmitRequest struct {
	URL            string `json:"url"`
	Quality        string `json:"quality,omitempty"`
	OutputDir      string `json:"outputDir,omitempty"`
	EmbedThumbnail *bool  `json:"embedThumbnail,omitempty"`
	EmbedMetadata  *bool  `json:"embedMetadata,omitempty"`
}

// AnalyzeRequest asks for a metadata probe of URL.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeResponse lists the probe states in order; Summary is the last one.
type AnalyzeResponse struct {
	States  []JobState `json:"states"`
	Summary JobState   `json:"summary"`
}

// JobUpdate is one sequenced change to the job collection.
type JobUpdate struct {
	Sequence  uint64 `json:"seq"`
	Timestamp string `json:"ts"`
	Type      string `json:"type"`
	Job       Job    `json:"job"`
}

// UpdateStreamResponse wraps a page of updates and the cursor for the next
// request.
type UpdateStreamResponse struct {
	Updates []JobUpdate `json:"updates"`
	Next    uint64      `json:"next"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is one labelled line of the status report.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LockFilePath string             `json:"lockFilePath"`
	LogPath      string             `json:"logPath,omitempty"`
	OutputDir    string             `json:"outputDir"`
	ActiveJobs   int                `json:"activeJobs"`
	JobCounts    map[string]int     `json:"jobCounts"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// JobListResponse wraps the job collection, newest first.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// ErrorResponse is returned with every non-2xx HTTP status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
