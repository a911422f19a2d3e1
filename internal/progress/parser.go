package progress

import (
	"regexp"
	"strconv"
	"strings"

	"wavecatch/internal/jobs"
)

var (
	errorPattern        = regexp.MustCompile(`^\s*ERROR:\s+(.+)`)
	downloadPattern     = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%(?:\s+of\s+~?\s*\S+)?(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)
	extractAudioPattern = regexp.MustCompile(`\[ExtractAudio\]\s+Destination:\s+(.+)`)
	destinationPattern  = regexp.MustCompile(`\[download\]\s+Destination:\s+(.+)`)
	playlistPattern     = regexp.MustCompile(`\[download\]\s+Downloading item \d+ of (\d+)`)
)

const (
	completeMarker = "[download] 100%"
	alreadyMarker  = "has already been downloaded"
)

// Parse maps a single output line to a state. The first matching rule wins:
// error sentinel at the start of the line, download progress, audio
// extraction, completion marker.
func Parse(line string) (jobs.State, bool) {
	if m := errorPattern.FindStringSubmatch(line); m != nil {
		return jobs.Failed(strings.TrimSpace(m[1])), true
	}
	if m := downloadPattern.FindStringSubmatch(line); m != nil {
		percent, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			percent = 0
		}
		return jobs.Downloading(percent/100, m[2], m[3]), true
	}
	if extractAudioPattern.MatchString(line) {
		return jobs.Converting(jobs.MessageConverting), true
	}
	if strings.Contains(line, completeMarker) || strings.Contains(line, alreadyMarker) {
		return jobs.Downloading(1, "", ""), true
	}
	return jobs.State{}, false
}

// TitleFromDestination returns the file stem named by a download destination
// line. Both '/' and '\' are treated as directory separators.
func TitleFromDestination(line string) (string, bool) {
	m := destinationPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return name, true
}

// PlaylistCount returns M from "[download] Downloading item N of M".
func PlaylistCount(line string) (int, bool) {
	m := playlistPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return count, true
}
