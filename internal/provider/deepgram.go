package provider

// DeepgramProvider implements Provider for Deepgram live transcription
type DeepgramProvider struct{}

func (p *DeepgramProvider) Name() string        { return ProviderDeepgram }
func (p *DeepgramProvider) DisplayName() string { return "Deepgram" }

func (p *DeepgramProvider) RequiresAPIKey() bool { return true }

func (p *DeepgramProvider) ValidateAPIKey(key string) bool {
	// Deepgram keys are opaque alphanumeric strings
	return len(key) > 0
}

func (p *DeepgramProvider) EnvVar() string { return EnvDeepgramKey }

func (p *DeepgramProvider) DefaultModel() string { return "nova-3" }

func (p *DeepgramProvider) Models() []string {
	return []string{"nova-3", "nova-3-general", "nova-2", "nova-2-general"}
}

func (p *DeepgramProvider) Endpoint() string { return "wss://api.deepgram.com/v1/listen" }

func (p *DeepgramProvider) Streaming() bool { return true }
