package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fluidvision/decibel/internal/itunes"
	"github.com/fluidvision/decibel/internal/language"
	"github.com/fluidvision/decibel/internal/player"
	"github.com/fluidvision/decibel/internal/provider"
	"github.com/fluidvision/decibel/internal/publish"
	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/speech"
	"github.com/fluidvision/decibel/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	config := transcriber.Config{
		Provider:   c.Transcription.Provider,
		Language:   c.Transcription.Language,
		Model:      c.Transcription.Model,
		Keywords:   c.Transcription.Keywords,
		SampleRate: c.Recording.SampleRate,
		Channels:   c.Recording.Channels,
		Google: transcriber.GoogleConfig{
			ProjectID:       c.resolveGoogleProject(),
			Location:        c.Google.Location,
			Recognizer:      c.Google.Recognizer,
			CredentialsFile: c.Google.CredentialsFile,
			Endpoint:        c.Google.Endpoint,
		},
	}
	if config.Google.CredentialsFile == "" {
		config.Google.CredentialsFile = os.Getenv(provider.EnvGoogleCredentials)
	}

	config.APIKey = c.resolveAPIKeyForProvider(c.Transcription.Provider)

	return config
}

// ToSpeechOptions builds recognizer options that capture from the configured
// PipeWire device and stream to the configured provider.
func (c *Config) ToSpeechOptions() speech.Options {
	tc := c.ToTranscriberConfig()
	rc := c.ToRecordingConfig()
	return speech.Options{
		NewAdapter: func() (transcriber.StreamingAdapter, error) {
			return transcriber.NewStreamingAdapter(tc)
		},
		NewSource: func() (recording.Source, error) {
			if err := rc.Validate(); err != nil {
				return nil, err
			}
			return recording.NewRecorder(rc), nil
		},
		Language:     c.Transcription.Language,
		FlushOnStop:  c.Transcription.FlushOnStop,
		FlushTimeout: c.Transcription.FlushTimeout,
		MaxDuration:  c.Transcription.MaxDuration,
		StopOnFinal:  c.Transcription.StopOnFinal,
	}
}

func (c *Config) ToSearchOptions() []itunes.Option {
	var opts []itunes.Option
	if c.Search.BaseURL != "" {
		opts = append(opts, itunes.WithBaseURL(c.Search.BaseURL))
	}
	if country := c.SearchCountry(); country != "" {
		opts = append(opts, itunes.WithCountry(country))
	}
	if c.Search.Timeout > 0 {
		opts = append(opts, itunes.WithHTTPClient(&http.Client{Timeout: c.Search.Timeout}))
	}
	return opts
}

// SearchCountry is search.country, or the region of the transcription
// language when no country is set.
func (c *Config) SearchCountry() string {
	if c.Search.Country != "" {
		return strings.ToLower(c.Search.Country)
	}
	return language.Country(c.Transcription.Language)
}

func (c *Config) ToPlayerConfig() player.Config {
	config := player.DefaultConfig()
	if c.Player.Command != "" {
		config.Command = c.Player.Command
	}
	if c.Player.CacheDir != "" {
		config.CacheDir = c.Player.CacheDir
	}
	config.FadeDuration = c.Player.Fade
	config.Volume = c.Player.Volume
	return config
}

func (c *Config) ToPublishConfig() publish.Config {
	return publish.Config{
		Servers:        c.Publish.Servers,
		SubjectPrefix:  c.Publish.SubjectPrefix,
		Token:          c.Publish.Token,
		Username:       c.Publish.Username,
		Password:       c.Publish.Password,
		TLSCAFile:      c.Publish.TLSCAFile,
		TLSCertFile:    c.Publish.TLSCertFile,
		TLSKeyFile:     c.Publish.TLSKeyFile,
		TLSInsecure:    c.Publish.TLSInsecure,
		ConnectTimeout: c.Publish.ConnectTimeout,
	}
}

// HistoryPath returns the database path, or "" when history is disabled.
func (c *Config) HistoryPath() string {
	if !c.History.Enabled {
		return ""
	}
	if c.History.Path != "" {
		return c.History.Path
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "decibel", "history.db")
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "decibel", "history.db")
}

// NotificationType returns the effective notifier type.
func (c *Config) NotificationType() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}

// resolveAPIKeyForProvider returns the API key for a provider from the config or its env var
func (c *Config) resolveAPIKeyForProvider(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}

	p := provider.GetProvider(providerName)
	if p == nil || !p.RequiresAPIKey() {
		return ""
	}
	return os.Getenv(p.EnvVar())
}

func (c *Config) resolveGoogleProject() string {
	if c.Google.ProjectID != "" {
		return c.Google.ProjectID
	}
	return os.Getenv(provider.EnvGoogleProject)
}
