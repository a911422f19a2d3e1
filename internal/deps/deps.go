package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency the daemon relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkBinary(req))
	}
	return results
}

func checkBinary(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	switch {
	case err == nil:
		status.Command = resolved
		status.Available = true
	case strings.ContainsAny(cmd, `/\`):
		status.Detail = fmt.Sprintf("binary %q not found or not executable", cmd)
	default:
		status.Detail = fmt.Sprintf("%q not on PATH; install it or place it in the bundle directory", cmd)
	}
	return status
}

// Requirements lists the tools a resolved toolchain needs for downloads.
func Requirements(tools Tools) []Requirement {
	ffmpeg := tools.FFmpeg
	if ffmpeg == "" {
		ffmpeg = FFmpegName
	}
	return []Requirement{
		{Name: "yt-dlp", Command: tools.YTDLP, Description: "Fetches media and drives audio extraction"},
		{Name: "FFmpeg", Command: ffmpeg, Description: "Converts downloaded media to audio"},
	}
}
