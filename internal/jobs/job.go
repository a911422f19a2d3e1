package jobs

import "time"

// Job is one user-requested download.
type Job struct {
	ID             string  `json:"id"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Quality        Quality `json:"quality"`
	OutputDir      string  `json:"output_dir"`
	EmbedThumbnail bool    `json:"embed_thumbnail"`
	EmbedMetadata  bool    `json:"embed_metadata"`
	State          State   `json:"state"`
	// Items is the playlist length once the downloader reports it.
	Items int `json:"items,omitempty"`
	// LastError holds the most recent per-item error. Playlist downloads
	// continue past item failures, so it may be set on a completed job.
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Finished reports whether the job reached a terminal state.
func (j Job) Finished() bool {
	return j.State.IsTerminal()
}
