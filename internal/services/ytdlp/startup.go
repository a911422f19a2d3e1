package ytdlp

import (
	"errors"
	"io/fs"
	"os/exec"
	"strings"
)

// NotFoundMessage is the terminal message when the yt-dlp executable cannot
// be located or launched.
const NotFoundMessage = "yt-dlp not found. Install it and make sure it is on PATH.\n" +
	"macOS: brew install yt-dlp\n" +
	"Windows: winget install yt-dlp\n" +
	"Linux: pipx install yt-dlp"

var notFoundMarkers = []string{
	"executable file not found",
	"no such file",
	"cannot run program",
	"permission denied",
	"exec format error",
}

// isToolMissing reports whether a start failure means the executable itself
// is unusable, as opposed to some other I/O problem such as a bad working
// directory.
func isToolMissing(err error) bool {
	if err == nil {
		return false
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range notFoundMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func downloadStartMessage(err error) string {
	if isToolMissing(err) {
		return NotFoundMessage
	}
	return "Download error: " + err.Error()
}

func analysisStartMessage(err error) string {
	if isToolMissing(err) {
		return NotFoundMessage
	}
	return "Analysis error: " + err.Error()
}
