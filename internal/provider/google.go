package provider

// GoogleProvider is Google Cloud Speech-to-Text v2. It authenticates with
// application default credentials or a service account file instead of an API key.
type GoogleProvider struct{}

func (p *GoogleProvider) Name() string        { return ProviderGoogle }
func (p *GoogleProvider) DisplayName() string { return "Google Cloud Speech" }

func (p *GoogleProvider) RequiresAPIKey() bool { return false }

func (p *GoogleProvider) ValidateAPIKey(key string) bool { return true }

func (p *GoogleProvider) EnvVar() string { return EnvGoogleCredentials }

func (p *GoogleProvider) DefaultModel() string { return "long" }

func (p *GoogleProvider) Models() []string {
	return []string{"long", "short", "telephony", "chirp_2", "latest_long", "latest_short"}
}

// Endpoint is the global gRPC endpoint; regional recognizers override it.
func (p *GoogleProvider) Endpoint() string { return "speech.googleapis.com:443" }

func (p *GoogleProvider) Streaming() bool { return true }
