package transcriber

import (
	"fmt"
	"time"

	"github.com/fluidvision/decibel/internal/provider"
)

var defaultRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Config selects and configures a streaming backend.
type Config struct {
	Provider   string
	APIKey     string
	Language   string
	Model      string
	Keywords   []string
	SampleRate int
	Channels   int
	Google     GoogleConfig
}

// GoogleConfig identifies the Speech-to-Text v2 recognizer to stream to.
type GoogleConfig struct {
	ProjectID       string
	Location        string
	Recognizer      string
	CredentialsFile string
	Endpoint        string
}

func DefaultConfig() Config {
	return Config{
		Provider:   provider.ProviderGoogle,
		Model:      provider.GetProvider(provider.ProviderGoogle).DefaultModel(),
		SampleRate: 16000,
		Channels:   1,
		Google: GoogleConfig{
			Location:   "global",
			Recognizer: "_",
		},
	}
}

// NewStreamingAdapter builds the adapter for config.Provider.
func NewStreamingAdapter(config Config) (StreamingAdapter, error) {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}

	p := provider.GetProvider(config.Provider)
	if p == nil {
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
	if p.RequiresAPIKey() && config.APIKey == "" {
		return nil, fmt.Errorf("%s API key required (set providers.%s.api_key or %s)", p.Name(), p.Name(), p.EnvVar())
	}
	if config.Model == "" {
		config.Model = p.DefaultModel()
	}

	switch config.Provider {
	case provider.ProviderGoogle:
		if config.Google.ProjectID == "" {
			return nil, fmt.Errorf("google project_id required")
		}
		return NewGoogleAdapter(config.Google, config.Model, config.Language, config.Keywords, config.SampleRate, config.Channels), nil

	case provider.ProviderDeepgram:
		return NewDeepgramAdapter(p.Endpoint(), config.APIKey, config.Model, config.Language, config.Keywords, config.SampleRate, config.Channels), nil

	case provider.ProviderOpenAI:
		return NewWhisperAdapter(p.Endpoint(), config.APIKey, config.Model, config.Language, config.SampleRate, config.Channels), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}
