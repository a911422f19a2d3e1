package ytdlp

import (
	"path/filepath"
	"strconv"

	"wavecatch/internal/jobs"
)

const outputTemplate = "%(title)s.%(ext)s"

// Request describes one download.
type Request struct {
	URL            string
	OutputDir      string
	Quality        jobs.Quality
	EmbedThumbnail bool
	EmbedMetadata  bool
}

func (s *Supervisor) downloadArgs(req Request) []string {
	args := []string{
		"-x",
		"--audio-format", s.audioFormat,
		"--audio-quality", req.Quality.ToolValue(),
		"--newline",
		"--no-check-certificates",
		"--no-cache-dir",
		"--force-ipv4",
		"--ignore-errors",
		"--retries", strconv.Itoa(s.retries),
	}
	if s.ffmpegDir != "" {
		args = append(args, "--ffmpeg-location", s.ffmpegDir)
	}
	if req.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if req.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}
	args = append(args, "-o", filepath.Join(req.OutputDir, outputTemplate), req.URL)
	return args
}

func (s *Supervisor) probeArgs(url string) []string {
	args := []string{"--flat-playlist", "--print", "title", "--no-warnings"}
	if s.ffmpegDir != "" {
		args = append(args, "--ffmpeg-location", s.ffmpegDir)
	}
	return append(args, url)
}
