package config

const (
	defaultConfigPath           = "~/.config/wavecatch/config.toml"
	defaultOutputDir            = "~/Music"
	defaultLogDir               = "~/.local/share/wavecatch/logs"
	defaultStateDir             = "~/.local/share/wavecatch"
	defaultAPIBind              = "127.0.0.1:7491"
	defaultYTDLPBinary          = "yt-dlp"
	defaultFFmpegBinary         = "ffmpeg"
	defaultAudioFormat          = "mp3"
	defaultRetries              = 3
	defaultProbeTimeout         = 120
	defaultQuality              = "high"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
			APIBind:   defaultAPIBind,
		},
		Tools: Tools{
			YTDLPBinary:  defaultYTDLPBinary,
			FFmpegBinary: defaultFFmpegBinary,
			AudioFormat:  defaultAudioFormat,
			Retries:      defaultRetries,
			ProbeTimeout: defaultProbeTimeout,
		},
		Downloads: Downloads{
			Quality:        defaultQuality,
			EmbedThumbnail: true,
			EmbedMetadata:  true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      false,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
