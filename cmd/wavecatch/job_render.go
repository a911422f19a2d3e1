package main

import (
	"fmt"
	"strings"
	"time"

	"wavecatch/internal/api"
	"wavecatch/internal/jobs"
	"wavecatch/internal/textutil"
)

const (
	titleColumnWidth = 40
	errorColumnWidth = 48
)

// errorCategory pairs a friendly message with the lowercase fragments of raw
// yt-dlp output that select it. Order matters: the first match wins.
type errorCategory struct {
	message   string
	fragments []string
}

var errorCategories = []errorCategory{
	{"Playlist not found", []string{"playlist does not exist", "does not exist"}},
	{"This video is private", []string{"private video", "this video is private"}},
	{"Video unavailable", []string{"video unavailable", "this video is unavailable", "is not available"}},
	{"Not available in your region", []string{"geo", "not available in your country"}},
	{"Sign-in required", []string{"sign in", "login", "age-restricted", "confirm your age"}},
	{"Blocked on copyright grounds", []string{"copyright", "dmca", "blocked"}},
	{"Network error, check your connection", []string{"urlopen", "connection", "timed out", "network"}},
}

// friendlyError maps a raw job error to a short category message. Unknown
// errors are returned verbatim (first line only).
func friendlyError(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, category := range errorCategories {
		for _, fragment := range category.fragments {
			if strings.Contains(lower, fragment) {
				return category.message
			}
		}
	}
	return textutil.FirstLine(raw)
}

func stateLabel(state api.JobState) string {
	label := textutil.TitleCase(state.Kind)
	if state.Kind == "error" && state.Message == jobs.MessageCancelled {
		return "Cancelled"
	}
	return label
}

func stateColor(state api.JobState) string {
	switch state.Kind {
	case "completed":
		return ansiGreen
	case "error":
		return ansiRed
	case "downloading", "converting":
		return ansiCyan
	case "analyzing":
		return ansiYellow
	default:
		return ""
	}
}

// stateDetail renders the variable part of a state: progress while
// downloading, the message otherwise.
func stateDetail(state api.JobState) string {
	switch state.Kind {
	case "downloading":
		parts := []string{fmt.Sprintf("%5.1f%%", state.Progress*100)}
		if state.Speed != "" {
			parts = append(parts, state.Speed)
		}
		if state.ETA != "" {
			parts = append(parts, "ETA "+state.ETA)
		}
		return strings.Join(parts, "  ")
	case "completed":
		return state.OutputDir
	case "error":
		return friendlyError(state.Message)
	default:
		return state.Message
	}
}

func jobTitle(job api.Job) string {
	if title := strings.TrimSpace(job.Title); title != "" {
		return title
	}
	return job.URL
}

func jobColumns() []column {
	return []column{
		{Header: "ID", MaxWidth: 8},
		{Header: "Title", MaxWidth: titleColumnWidth},
		{Header: "State"},
		{Header: "Detail", MaxWidth: errorColumnWidth},
		{Header: "Items", Align: alignRight},
		{Header: "Quality"},
		{Header: "Created"},
	}
}

func buildJobRows(list []api.Job, colorize bool) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		items := "-"
		if job.Items > 0 {
			items = fmt.Sprintf("%d", job.Items)
		}
		rows = append(rows, []string{
			job.ID,
			jobTitle(job),
			paint(stateLabel(job.State), stateColor(job.State), colorize),
			stateDetail(job.State),
			items,
			job.QualityLabel,
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

// jobDetailLines renders a single job for `wavecatch show`.
func jobDetailLines(job api.Job, colorize bool) []string {
	lines := []string{
		fmt.Sprintf("ID:        %s", job.ID),
		fmt.Sprintf("Title:     %s", jobTitle(job)),
		fmt.Sprintf("URL:       %s", job.URL),
		fmt.Sprintf("State:     %s", paint(stateLabel(job.State), stateColor(job.State), colorize)),
	}
	if detail := stateDetail(job.State); detail != "" {
		lines = append(lines, fmt.Sprintf("Detail:    %s", detail))
	}
	lines = append(lines,
		fmt.Sprintf("Quality:   %s", job.QualityLabel),
		fmt.Sprintf("Output:    %s", job.OutputDir),
		fmt.Sprintf("Embed:     thumbnail=%s metadata=%s", textutil.YesNo(job.EmbedThumbnail), textutil.YesNo(job.EmbedMetadata)),
	)
	if job.Items > 0 {
		lines = append(lines, fmt.Sprintf("Items:     %d", job.Items))
	}
	if job.LastError != "" && job.State.Kind != "error" {
		lines = append(lines, fmt.Sprintf("Warning:   %s", textutil.FirstLine(job.LastError)))
	}
	if job.State.Kind == "error" && friendlyError(job.State.Message) != textutil.FirstLine(job.State.Message) {
		lines = append(lines, fmt.Sprintf("Raw error: %s", textutil.FirstLine(job.State.Message)))
	}
	lines = append(lines,
		fmt.Sprintf("Created:   %s", formatDisplayTime(job.CreatedAt)),
		fmt.Sprintf("Updated:   %s", formatDisplayTime(job.UpdatedAt)),
	)
	return lines
}

// updateLine renders one watch event.
func updateLine(update api.JobUpdate, colorize bool) string {
	job := update.Job
	line := fmt.Sprintf("%s  %-8s %-8s %-12s %s",
		formatClockTime(update.Timestamp),
		update.Type,
		job.ID,
		stateLabel(job.State),
		textutil.Truncate(jobTitle(job), titleColumnWidth),
	)
	if detail := stateDetail(job.State); detail != "" {
		line += "  " + detail
	}
	return paint(line, stateColor(job.State), colorize)
}

func formatDisplayTime(value string) string {
	t, ok := parseAPITime(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatClockTime(value string) string {
	t, ok := parseAPITime(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return t.Local().Format("15:04:05")
}

func parseAPITime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
