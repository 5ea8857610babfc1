package provider

// Provider name constants for config and registry
const (
	ProviderGoogle   = "google"
	ProviderDeepgram = "deepgram"
	ProviderOpenAI   = "openai"
)

// Environment variable names for credentials
const (
	EnvGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvGoogleProject     = "GOOGLE_CLOUD_PROJECT"
	EnvDeepgramKey       = "DEEPGRAM_API_KEY"
	EnvOpenAIKey         = "OPENAI_API_KEY"
)

// EnvVarForProvider returns the environment variable holding a provider's credential
func EnvVarForProvider(name string) string {
	if p := GetProvider(name); p != nil {
		return p.EnvVar()
	}
	return ""
}
