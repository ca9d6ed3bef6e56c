package config

import "time"

// DefaultConfig returns the initial configuration written by onboarding.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
			Timeout:           5 * time.Minute,
		},
		Transcription: TranscriptionConfig{
			Provider: "relay",
			Endpoint: "http://localhost:8000/transcribe",
			Timeout:  60 * time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "localhost:9310",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Providers: make(map[string]ProviderConfig),
	}
}
