package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	YTDLPName  = "yt-dlp"
	FFmpegName = "ffmpeg"
)

// Tools is the resolved toolchain handed to the downloader.
type Tools struct {
	// YTDLP is the executable to run; a bare name when nothing better was found
	// so that startup fails with a not-found error.
	YTDLP string
	// FFmpeg is the resolved ffmpeg path, or empty when it could not be found.
	FFmpeg string
	// FFmpegDir is passed as --ffmpeg-location; set only for bundled or
	// explicitly configured ffmpeg binaries.
	FFmpegDir string
	// Bundled reports whether yt-dlp came from the bundle directory.
	Bundled bool
}

// Locator resolves yt-dlp and ffmpeg. A bundle directory shipped next to the
// daemon wins over configured commands, which win over PATH.
type Locator struct {
	BundleDir string
	YTDLP     string
	FFmpeg    string
}

// DefaultBundleDir returns the "bin" directory next to the running executable.
func DefaultBundleDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), "bin")
}

// Resolve locates the toolchain. It never fails; missing tools surface when
// the downloader starts or through CheckBinaries.
func (l Locator) Resolve() Tools {
	var tools Tools

	if path, ok := bundledBinary(l.BundleDir, YTDLPName); ok {
		tools.YTDLP = path
		tools.Bundled = true
	} else {
		tools.YTDLP = lookup(l.YTDLP, YTDLPName)
	}

	if path, ok := bundledBinary(l.BundleDir, FFmpegName); ok {
		tools.FFmpeg = path
		tools.FFmpegDir = filepath.Dir(path)
		return tools
	}

	configured := strings.TrimSpace(l.FFmpeg)
	if configured != "" && strings.ContainsAny(configured, `/\`) {
		if info, err := os.Stat(configured); err == nil && isExecutable(info) {
			tools.FFmpeg = configured
			tools.FFmpegDir = filepath.Dir(configured)
			return tools
		}
	}
	if resolved, err := exec.LookPath(lookup(configured, FFmpegName)); err == nil {
		tools.FFmpeg = resolved
	}
	return tools
}

func lookup(configured, fallback string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = fallback
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}

// bundledBinary returns the bundled tool, marking it executable when the
// bundle was unpacked without permission bits.
func bundledBinary(dir, name string) (string, bool) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, executableName(name))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	if !isExecutable(info) {
		if err := os.Chmod(path, info.Mode().Perm()|0o755); err != nil {
			return "", false
		}
	}
	return path, true
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
