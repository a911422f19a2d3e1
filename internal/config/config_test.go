package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"wavecatch/internal/config"
	"wavecatch/internal/jobs"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("WAVECATCH_NTFY_TOPIC", "")
	t.Setenv("WAVECATCH_OUTPUT_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "wavecatch", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "Music") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7491" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Tools.YTDLPBinary != "yt-dlp" || cfg.Tools.FFmpegBinary != "ffmpeg" {
		t.Fatalf("expected bare tool names, got %q %q", cfg.Tools.YTDLPBinary, cfg.Tools.FFmpegBinary)
	}
	if cfg.Tools.Retries != 3 || cfg.Tools.AudioFormat != "mp3" {
		t.Fatalf("unexpected tool defaults %+v", cfg.Tools)
	}
	if cfg.DefaultQuality() != jobs.QualityHigh {
		t.Fatalf("unexpected default quality %q", cfg.DefaultQuality())
	}
	if !cfg.Downloads.EmbedThumbnail || !cfg.Downloads.EmbedMetadata {
		t.Fatal("expected embed flags enabled by default")
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("expected no ntfy topic, got %q", cfg.Notifications.NtfyTopic)
	}
	if filepath.Dir(cfg.SocketPath()) != cfg.Paths.StateDir {
		t.Fatalf("socket %q outside state dir %q", cfg.SocketPath(), cfg.Paths.StateDir)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "wavecatch.toml")
	t.Setenv("WAVECATCH_NTFY_TOPIC", "")
	t.Setenv("WAVECATCH_OUTPUT_DIR", "")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Tools struct {
			FFmpegBinary string `toml:"ffmpeg_binary"`
			Retries      int    `toml:"retries"`
		} `toml:"tools"`
		Downloads struct {
			Quality       string `toml:"quality"`
			EmbedMetadata bool   `toml:"embed_metadata"`
		} `toml:"downloads"`
		Notifications struct {
			NtfyTopic string `toml:"ntfy_topic"`
		} `toml:"notifications"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "audio")
	custom.Tools.FFmpegBinary = filepath.Join(tempDir, "bin", "ffmpeg")
	custom.Tools.Retries = 7
	custom.Downloads.Quality = " Medium "
	custom.Downloads.EmbedMetadata = false
	custom.Notifications.NtfyTopic = "https://ntfy.example.com/music"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.OutputDir != custom.Paths.OutputDir {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Tools.FFmpegBinary != custom.Tools.FFmpegBinary {
		t.Fatalf("unexpected ffmpeg binary %q", cfg.Tools.FFmpegBinary)
	}
	if cfg.Tools.Retries != 7 {
		t.Fatalf("unexpected retries %d", cfg.Tools.Retries)
	}
	if cfg.DefaultQuality() != jobs.QualityMedium {
		t.Fatalf("unexpected quality %q", cfg.Downloads.Quality)
	}
	if cfg.Downloads.EmbedMetadata {
		t.Fatal("expected embed_metadata override to be respected")
	}
	if !cfg.Downloads.EmbedThumbnail {
		t.Fatal("expected unset embed_thumbnail to keep its default")
	}
	if cfg.Notifications.NtfyTopic != custom.Notifications.NtfyTopic {
		t.Fatalf("unexpected topic %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("WAVECATCH_NTFY_TOPIC", "https://ntfy.sh/env-topic")
	t.Setenv("WAVECATCH_OUTPUT_DIR", "~/Downloads/audio")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/env-topic" {
		t.Fatalf("expected env topic, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "Downloads", "audio") {
		t.Fatalf("expected env output dir, got %q", cfg.Paths.OutputDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("WAVECATCH_NTFY_TOPIC", "")
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"quality", "[downloads]\nquality = \"lossless\"\n", "downloads.quality"},
		{"format", "[tools]\naudio_format = \"wma\"\n", "tools.audio_format"},
		{"retries", "[tools]\nretries = -1\n", "tools.retries"},
		{"topic", "[notifications]\nntfy_topic = \"my-topic\"\n", "notifications.ntfy_topic"},
		{"bind", "[paths]\napi_bind = \"localhost\"\n", "paths.api_bind"},
		{"log level", "[logging]\nlevel = \"verbose\"\n", "logging.level"},
		{"unknown key", "[paths]\nlibrary_dir = \"/x\"\n", "library_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected %q in error %q", tt.message, err.Error())
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WAVECATCH_NTFY_TOPIC", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Tools.ProbeTimeout != 120 {
		t.Fatalf("unexpected probe timeout %d", cfg.Tools.ProbeTimeout)
	}
}
