package config

import (
	"time"

	"github.com/fluidvision/decibel/internal/provider"
)

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Transcription: TranscriptionConfig{
			Provider:     provider.ProviderGoogle,
			Language:     "en-US",
			Model:        provider.GetProvider(provider.ProviderGoogle).DefaultModel(),
			FlushOnStop:  true,
			FlushTimeout: 3 * time.Second,
			MaxDuration:  5 * time.Minute,
		},
		Providers: make(map[string]ProviderConfig),
		Google: GoogleConfig{
			Location:   "global",
			Recognizer: "_",
		},
		Search: SearchConfig{
			Timeout: 10 * time.Second,
		},
		Player: PlayerConfig{
			Enabled: true,
			Command: "mpv",
			Fade:    2 * time.Second,
			Volume:  80,
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 500,
		},
		Publish: PublishConfig{
			SubjectPrefix:  "decibel",
			ConnectTimeout: 2 * time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
