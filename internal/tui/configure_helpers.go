package tui

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/fluidvision/decibel/internal/config"
	"github.com/fluidvision/decibel/internal/language"
	"github.com/fluidvision/decibel/internal/provider"
)

func formatTranscriptionLabel(cfg *config.Config) string {
	p := provider.GetProvider(cfg.Transcription.Provider)
	if p == nil {
		return "Transcription (not configured)"
	}
	model := cfg.Transcription.Model
	if model == "" {
		model = p.DefaultModel()
	}
	return fmt.Sprintf("Transcription (%s, %s)", p.DisplayName(), model)
}

func formatProvidersLabel(cfg *config.Config) string {
	configured := getConfiguredProviders(cfg)
	if len(configured) == 0 {
		return "API Keys"
	}
	return fmt.Sprintf("API Keys (%s)", strings.Join(configured, ", "))
}

func formatToggleLabel(name string, on bool) string {
	if on {
		return name + " (on)"
	}
	return name + " (off)"
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func getConfiguredProviders(cfg *config.Config) []string {
	providers := make([]string, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			providers = append(providers, name)
		}
	}
	sort.Strings(providers)
	return providers
}

// keyedProviders returns the providers that authenticate with an API key.
func keyedProviders() []provider.Provider {
	var out []provider.Provider
	for _, name := range provider.ListProviders() {
		if p := provider.GetProvider(name); p.RequiresAPIKey() {
			out = append(out, p)
		}
	}
	return out
}

func providerOptions() []huh.Option[string] {
	var options []huh.Option[string]
	for _, name := range provider.ListProviders() {
		p := provider.GetProvider(name)
		label := p.DisplayName()
		if !p.Streaming() {
			label += " [batch]"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

func modelOptions(providerName string) []huh.Option[string] {
	p := provider.GetProvider(providerName)
	if p == nil {
		return nil
	}
	var options []huh.Option[string]
	for _, m := range p.Models() {
		label := m
		if m == p.DefaultModel() {
			label += " (default)"
		}
		options = append(options, huh.NewOption(label, m))
	}
	return options
}

// languageOptions lists the known locales. A tag set by hand in config.toml
// stays selectable.
func languageOptions(current string) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("Backend default", "")}
	known := false
	for _, l := range language.Locales() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s  %s", l.Tag, l.Name), l.Tag))
		known = known || l.Tag == current
	}
	if current != "" && !known {
		options = append(options, huh.NewOption(current+"  (custom)", current))
	}
	return options
}

type summaryLine struct {
	label string
	value string
}

func summaryLines(cfg *config.Config) []summaryLine {
	lines := []summaryLine{
		{"Transcription", fmt.Sprintf("%s (%s)", cfg.Transcription.Provider, cfg.Transcription.Model)},
	}
	if cfg.Transcription.Language != "" {
		lines = append(lines, summaryLine{"Language", cfg.Transcription.Language})
	}
	if len(cfg.Transcription.Keywords) > 0 {
		lines = append(lines, summaryLine{"Keywords", strings.Join(cfg.Transcription.Keywords, ", ")})
	}
	for _, name := range getConfiguredProviders(cfg) {
		lines = append(lines, summaryLine{"API key " + name, maskAPIKey(cfg.Providers[name].APIKey)})
	}
	if cfg.Transcription.Provider == provider.ProviderGoogle {
		lines = append(lines, summaryLine{"Google", fmt.Sprintf("%s/%s/%s", cfg.Google.ProjectID, cfg.Google.Location, cfg.Google.Recognizer)})
	}
	if cfg.Search.Country != "" {
		lines = append(lines, summaryLine{"Store country", cfg.Search.Country})
	}
	if cfg.Player.Enabled {
		lines = append(lines, summaryLine{"Player", fmt.Sprintf("%s at volume %d", cfg.Player.Command, cfg.Player.Volume)})
	} else {
		lines = append(lines, summaryLine{"Player", "disabled"})
	}
	if cfg.History.Enabled {
		lines = append(lines, summaryLine{"History", fmt.Sprintf("keep %d entries", cfg.History.MaxEntries)})
	} else {
		lines = append(lines, summaryLine{"History", "disabled"})
	}
	if len(cfg.Publish.Servers) > 0 {
		lines = append(lines, summaryLine{"Publish", fmt.Sprintf("%s -> %s.*", strings.Join(cfg.Publish.Servers, ", "), cfg.Publish.SubjectPrefix)})
	}
	if cfg.Notifications.Enabled {
		lines = append(lines, summaryLine{"Notifications", cfg.Notifications.Type})
	} else {
		lines = append(lines, summaryLine{"Notifications", "disabled"})
	}
	return lines
}

// parseList splits a comma separated field, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateVolume(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 || v > 100 {
		return fmt.Errorf("enter a number from 0 to 100")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return fmt.Errorf("enter a whole number, 0 or more")
	}
	return nil
}

func validateDuration(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fmt.Errorf("enter a duration like 30s or 5m")
	}
	return nil
}

func validateCountry(s string) error {
	if s = strings.TrimSpace(s); s != "" && len(s) != 2 {
		return fmt.Errorf("use a two-letter country code like us or gb")
	}
	return nil
}

func validateServers(s string) error {
	for _, server := range parseList(s) {
		u, err := url.Parse(server)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%q is not a server URL like nats://localhost:4222", server)
		}
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(s))
	return d
}

func mustInt(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}
