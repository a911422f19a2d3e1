package config

import (
	"fmt"
	"os"
	"strings"

	"wavecatch/internal/deps"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeDownloads()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("WAVECATCH_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = value
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if value, ok := os.LookupEnv("WAVECATCH_API_TOKEN"); ok {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTools() error {
	c.Tools.YTDLPBinary = strings.TrimSpace(c.Tools.YTDLPBinary)
	if c.Tools.YTDLPBinary == "" {
		c.Tools.YTDLPBinary = defaultYTDLPBinary
	}
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	if c.Tools.FFmpegBinary == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	var err error
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"tools.ytdlp_binary", &c.Tools.YTDLPBinary},
		{"tools.ffmpeg_binary", &c.Tools.FFmpegBinary},
	} {
		// Bare names resolve through PATH; only explicit paths are expanded.
		if strings.ContainsAny(*field.value, `/\`) || strings.HasPrefix(*field.value, "~") {
			if *field.value, err = expandPath(*field.value); err != nil {
				return fmt.Errorf("%s: %w", field.name, err)
			}
		}
	}
	c.Tools.BundleDir = strings.TrimSpace(c.Tools.BundleDir)
	if c.Tools.BundleDir == "" {
		c.Tools.BundleDir = deps.DefaultBundleDir()
	}
	if c.Tools.BundleDir, err = expandPath(c.Tools.BundleDir); err != nil {
		return fmt.Errorf("tools.bundle_dir: %w", err)
	}
	c.Tools.AudioFormat = strings.ToLower(strings.TrimSpace(c.Tools.AudioFormat))
	if c.Tools.AudioFormat == "" {
		c.Tools.AudioFormat = defaultAudioFormat
	}
	if c.Tools.ProbeTimeout == 0 {
		c.Tools.ProbeTimeout = defaultProbeTimeout
	}
	return nil
}

func (c *Config) normalizeDownloads() {
	c.Downloads.Quality = strings.ToLower(strings.TrimSpace(c.Downloads.Quality))
	if c.Downloads.Quality == "" {
		c.Downloads.Quality = defaultQuality
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("WAVECATCH_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
