package config

import (
	"fmt"
	"strings"

	"github.com/fluidvision/decibel/internal/language"
	"github.com/fluidvision/decibel/internal/provider"
)

func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format != "s16" {
		return fmt.Errorf("invalid recording.format: %q (only s16 is supported)", c.Recording.Format)
	}

	if c.Transcription.Provider == "" {
		return fmt.Errorf("invalid transcription.provider: empty")
	}
	p := provider.GetProvider(c.Transcription.Provider)
	if p == nil {
		return fmt.Errorf("unsupported transcription.provider: %s (must be one of %s)",
			c.Transcription.Provider, strings.Join(provider.ListProviders(), ", "))
	}
	if p.RequiresAPIKey() {
		key := c.resolveAPIKeyForProvider(p.Name())
		if key == "" {
			return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key) or environment variable (%s)",
				p.DisplayName(), p.Name(), p.EnvVar())
		}
		if !p.ValidateAPIKey(key) {
			return fmt.Errorf("invalid %s API key format", p.DisplayName())
		}
	}
	if c.Transcription.Model != "" && !provider.HasModel(p, c.Transcription.Model) {
		return fmt.Errorf("invalid model for %s: %s (must be one of %s)",
			p.Name(), c.Transcription.Model, strings.Join(p.Models(), ", "))
	}
	if c.Transcription.Language != "" && !language.IsValid(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use ISO-639-1 codes like 'en' or BCP-47 tags like 'en-US')", c.Transcription.Language)
	}
	if c.Transcription.FlushTimeout < 0 {
		return fmt.Errorf("invalid transcription.flush_timeout: %v", c.Transcription.FlushTimeout)
	}
	if c.Transcription.MaxDuration < 0 {
		return fmt.Errorf("invalid transcription.max_duration: %v", c.Transcription.MaxDuration)
	}

	if p.Name() == provider.ProviderGoogle {
		if c.resolveGoogleProject() == "" {
			return fmt.Errorf("google.project_id required: not found in config or environment variable (%s)", provider.EnvGoogleProject)
		}
		if c.Google.Location == "" {
			return fmt.Errorf("invalid google.location: empty")
		}
		if c.Google.Recognizer == "" {
			return fmt.Errorf("invalid google.recognizer: empty (use \"_\" for the default recognizer)")
		}
	}

	if c.Search.Country != "" && len(c.Search.Country) != 2 {
		return fmt.Errorf("invalid search.country: %s (must be a two-letter country code)", c.Search.Country)
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("invalid search.timeout: %v", c.Search.Timeout)
	}

	if c.Player.Enabled {
		if c.Player.Command == "" {
			return fmt.Errorf("invalid player.command: empty")
		}
		if c.Player.Volume < 0 || c.Player.Volume > 100 {
			return fmt.Errorf("invalid player.volume: %d (must be 0-100)", c.Player.Volume)
		}
		if c.Player.Fade < 0 {
			return fmt.Errorf("invalid player.fade: %v", c.Player.Fade)
		}
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("invalid history.max_entries: %d", c.History.MaxEntries)
	}

	if len(c.Publish.Servers) > 0 && strings.TrimSpace(c.Publish.SubjectPrefix) == "" {
		return fmt.Errorf("publish.subject_prefix required when publish.servers is set")
	}
	if (c.Publish.TLSCertFile == "") != (c.Publish.TLSKeyFile == "") {
		return fmt.Errorf("publish.tls_cert_file and publish.tls_key_file must be set together")
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}
