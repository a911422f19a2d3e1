package api

import (
	"time"

	"wavecatch/internal/deps"
	"wavecatch/internal/jobs"
	"wavecatch/internal/registry"
)

// FromState converts a job state.
func FromState(s jobs.State) JobState {
	return JobState{
		Kind:      string(s.Kind),
		Message:   s.Message,
		Progress:  s.Progress,
		Speed:     s.Speed,
		ETA:       s.ETA,
		OutputDir: s.OutputDir,
	}
}

// ToState converts a transport state back to the core type.
func ToState(s JobState) jobs.State {
	return jobs.State{
		Kind:      jobs.Kind(s.Kind),
		Message:   s.Message,
		Progress:  s.Progress,
		Speed:     s.Speed,
		ETA:       s.ETA,
		OutputDir: s.OutputDir,
	}
}

// FromJob converts a registry job.
func FromJob(job jobs.Job) Job {
	return Job{
		ID:             job.ID,
		URL:            job.URL,
		Title:          job.Title,
		Quality:        string(job.Quality),
		QualityLabel:   job.Quality.Label(),
		OutputDir:      job.OutputDir,
		EmbedThumbnail: job.EmbedThumbnail,
		EmbedMetadata:  job.EmbedMetadata,
		State:          FromState(job.State),
		Items:          job.Items,
		LastError:      job.LastError,
		CreatedAt:      formatTime(job.CreatedAt),
		UpdatedAt:      formatTime(job.UpdatedAt),
	}
}

// FromJobs converts a job list, preserving order.
func FromJobs(list []jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromUpdates converts registry updates.
func FromUpdates(updates []registry.Update) []JobUpdate {
	if len(updates) == 0 {
		return nil
	}
	out := make([]JobUpdate, 0, len(updates))
	for _, u := range updates {
		out = append(out, JobUpdate{
			Sequence:  u.Sequence,
			Timestamp: formatTime(u.Timestamp),
			Type:      string(u.Type),
			Job:       FromJob(u.Job),
		})
	}
	return out
}

// FromDependencies converts dependency checks, deriving a severity for each.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		severity := "ok"
		if !dep.Available {
			severity = "error"
			if dep.Optional {
				severity = "warn"
			}
		}
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
			Severity:    severity,
		})
	}
	return out
}

// JobCounts tallies jobs by state kind.
func JobCounts(list []jobs.Job) map[string]int {
	counts := make(map[string]int)
	for _, job := range list {
		counts[string(job.State.Kind)]++
	}
	return counts
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
