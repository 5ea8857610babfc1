package provider

import "sort"

// Provider describes a speech recognition backend
type Provider interface {
	Name() string
	DisplayName() string
	RequiresAPIKey() bool
	ValidateAPIKey(key string) bool
	EnvVar() string
	DefaultModel() string
	Models() []string
	Endpoint() string
	// Streaming reports whether the backend returns interim results while audio is sent
	Streaming() bool
}

var registry = make(map[string]Provider)

func init() {
	Register(&GoogleProvider{})
	Register(&DeepgramProvider{})
	Register(&OpenAIProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns all registered provider names, sorted
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasModel reports whether model is one of p's known models.
func HasModel(p Provider, model string) bool {
	for _, m := range p.Models() {
		if m == model {
			return true
		}
	}
	return false
}
