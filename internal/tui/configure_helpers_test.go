package tui

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fluidvision/decibel/internal/config"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"Beatles", []string{"Beatles"}},
		{"Beatles, Radiohead ,, Björk", []string{"Beatles", "Radiohead", "Björk"}},
	}
	for _, tt := range tests {
		if got := parseList(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) error
		input string
		ok    bool
	}{
		{"volume", validateVolume, "80", true},
		{"volume too high", validateVolume, "101", false},
		{"volume not a number", validateVolume, "loud", false},
		{"entries", validateNonNegativeInt, "0", true},
		{"negative entries", validateNonNegativeInt, "-3", false},
		{"duration", validateDuration, "90s", true},
		{"empty duration", validateDuration, "", true},
		{"bad duration", validateDuration, "soon", false},
		{"country", validateCountry, "gb", true},
		{"long country", validateCountry, "gbr", false},
		{"servers", validateServers, "nats://a:4222, tls://b:4222", true},
		{"bare host", validateServers, "localhost", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(tt.input); (err == nil) != tt.ok {
				t.Errorf("validate(%q) error = %v, want ok=%v", tt.input, err, tt.ok)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("short"); got != "***" {
		t.Errorf("maskAPIKey(short) = %q", got)
	}
	if got := maskAPIKey("sk-proj-abcdefghijkl1234"); got != "sk-proj...1234" {
		t.Errorf("maskAPIKey() = %q", got)
	}
}

func TestModelOptions(t *testing.T) {
	opts := modelOptions("deepgram")
	if len(opts) == 0 {
		t.Fatal("no deepgram models")
	}
	if !strings.Contains(opts[0].Key, "(default)") || opts[0].Value != "nova-3" {
		t.Errorf("first option = %+v, want default nova-3", opts[0])
	}
	if modelOptions("houndify") != nil {
		t.Error("unknown provider should have no models")
	}
}

func TestProviderOptionsMarkBatch(t *testing.T) {
	for _, opt := range providerOptions() {
		if opt.Value == "openai" && !strings.Contains(opt.Key, "[batch]") {
			t.Errorf("openai option should be marked batch: %q", opt.Key)
		}
		if opt.Value == "deepgram" && strings.Contains(opt.Key, "[batch]") {
			t.Errorf("deepgram option should not be marked batch: %q", opt.Key)
		}
	}
}

func TestSummaryLines(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Google.ProjectID = "music-app"
	cfg.Providers["deepgram"] = config.ProviderConfig{APIKey: "dg-0123456789abcdef"}
	cfg.Publish.Servers = []string{"nats://localhost:4222"}
	cfg.Player.Enabled = false
	cfg.Transcription.MaxDuration = time.Minute

	got := map[string]string{}
	for _, l := range summaryLines(cfg) {
		got[l.label] = l.value
	}

	want := map[string]string{
		"Transcription":    "google (long)",
		"Google":           "music-app/global/_",
		"API key deepgram": "dg-0123...cdef",
		"Player":           "disabled",
		"Publish":          "nats://localhost:4222 -> decibel.*",
		"Notifications":    "desktop",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("summary[%s] = %q, want %q", k, got[k], v)
		}
	}
}

func TestLabels(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := formatTranscriptionLabel(cfg); got != "Transcription (Google Cloud Speech, long)" {
		t.Errorf("formatTranscriptionLabel() = %q", got)
	}
	if got := formatProvidersLabel(cfg); got != "API Keys" {
		t.Errorf("formatProvidersLabel() = %q", got)
	}
	cfg.Providers["openai"] = config.ProviderConfig{APIKey: "sk-x"}
	if got := formatProvidersLabel(cfg); got != "API Keys (openai)" {
		t.Errorf("formatProvidersLabel() = %q", got)
	}
	if got := formatToggleLabel("History", false); got != "History (off)" {
		t.Errorf("formatToggleLabel() = %q", got)
	}
}

func TestLanguageOptions(t *testing.T) {
	opts := languageOptions("en-US")
	if opts[0].Value != "" {
		t.Errorf("first option = %+v, want backend default", opts[0])
	}
	for _, opt := range opts {
		if strings.Contains(opt.Key, "(custom)") {
			t.Errorf("known tag should not be listed as custom: %q", opt.Key)
		}
	}

	opts = languageOptions("ca-ES")
	last := opts[len(opts)-1]
	if last.Value != "ca-ES" || !strings.Contains(last.Key, "(custom)") {
		t.Errorf("last option = %+v, want custom ca-ES", last)
	}
}
