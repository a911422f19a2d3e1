package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"wavecatch/internal/jobs"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateDownloads(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q must be host:port: %w", c.Paths.APIBind, err)
	}
	return nil
}

var supportedAudioFormats = []string{"mp3", "m4a", "aac", "opus", "vorbis", "flac", "wav", "alac", "best"}

func (c *Config) validateTools() error {
	if c.Tools.Retries <= 0 {
		return errors.New("tools.retries must be positive")
	}
	if c.Tools.ProbeTimeout < 0 {
		return errors.New("tools.probe_timeout must be positive")
	}
	for _, format := range supportedAudioFormats {
		if c.Tools.AudioFormat == format {
			return nil
		}
	}
	return fmt.Errorf("tools.audio_format %q is not supported (want one of %s)", c.Tools.AudioFormat, strings.Join(supportedAudioFormats, ", "))
}

func (c *Config) validateDownloads() error {
	if _, err := jobs.ParseQuality(c.Downloads.Quality); err != nil {
		return fmt.Errorf("downloads.quality: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL (e.g. https://ntfy.sh/my-topic), got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

// DefaultQuality returns the configured default tier.
func (c *Config) DefaultQuality() jobs.Quality {
	q, err := jobs.ParseQuality(c.Downloads.Quality)
	if err != nil {
		return jobs.DefaultQuality
	}
	return q
}
