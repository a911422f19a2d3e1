package testsupport

import (
	"path/filepath"
	"testing"

	"wavecatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "music")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Tools.BundleDir = filepath.Join(base, "bin")
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithYTDLP points the config at a yt-dlp executable, usually a stub from
// WriteStub.
func WithYTDLP(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.YTDLPBinary = path
	}
}

// WithStubYTDLP writes a yt-dlp stub with the given shell body into the
// bundle directory so the locator resolves it first.
func WithStubYTDLP(body string) ConfigOption {
	return func(b *configBuilder) {
		path := WriteStub(b.t, b.cfg.Tools.BundleDir, "yt-dlp", body)
		b.cfg.Tools.YTDLPBinary = path
	}
}

// WithNtfyTopic enables notifications against the given endpoint.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}
