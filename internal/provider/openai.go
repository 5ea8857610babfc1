package provider

import "strings"

// OpenAIProvider is the Whisper batch API, used as a non-streaming fallback.
type OpenAIProvider struct{}

func (p *OpenAIProvider) Name() string        { return ProviderOpenAI }
func (p *OpenAIProvider) DisplayName() string { return "OpenAI Whisper" }

func (p *OpenAIProvider) RequiresAPIKey() bool { return true }

func (p *OpenAIProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

func (p *OpenAIProvider) EnvVar() string { return EnvOpenAIKey }

func (p *OpenAIProvider) DefaultModel() string { return "whisper-1" }

func (p *OpenAIProvider) Models() []string {
	return []string{"whisper-1", "gpt-4o-transcribe", "gpt-4o-mini-transcribe"}
}

func (p *OpenAIProvider) Endpoint() string { return "https://api.openai.com/v1" }

func (p *OpenAIProvider) Streaming() bool { return false }
