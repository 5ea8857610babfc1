package transcriber

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/fluidvision/decibel/internal/provider"
)

func TestNewStreamingAdapter(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    string
		wantErr bool
	}{
		{
			name:   "google",
			config: Config{Provider: provider.ProviderGoogle, Google: GoogleConfig{ProjectID: "decibel-test"}},
			want:   "*transcriber.GoogleAdapter",
		},
		{
			name:    "google without project",
			config:  Config{Provider: provider.ProviderGoogle},
			wantErr: true,
		},
		{
			name:   "deepgram",
			config: Config{Provider: provider.ProviderDeepgram, APIKey: "dg-key"},
			want:   "*transcriber.DeepgramAdapter",
		},
		{
			name:    "deepgram without key",
			config:  Config{Provider: provider.ProviderDeepgram},
			wantErr: true,
		},
		{
			name:   "openai",
			config: Config{Provider: provider.ProviderOpenAI, APIKey: "sk-test"},
			want:   "*transcriber.WhisperAdapter",
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "acme"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewStreamingAdapter(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStreamingAdapter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := fmt.Sprintf("%T", adapter); got != tt.want {
				t.Errorf("NewStreamingAdapter() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewStreamingAdapter_DefaultsModel(t *testing.T) {
	adapter, err := NewStreamingAdapter(Config{Provider: provider.ProviderDeepgram, APIKey: "dg-key"})
	if err != nil {
		t.Fatalf("NewStreamingAdapter() error = %v", err)
	}
	dg := adapter.(*DeepgramAdapter)
	if dg.model != "nova-3" {
		t.Errorf("model = %q, want nova-3", dg.model)
	}
	if dg.sampleRate != 16000 || dg.channels != 1 {
		t.Errorf("format = %d/%d, want 16000/1", dg.sampleRate, dg.channels)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != provider.ProviderGoogle {
		t.Errorf("Provider = %q, want google", cfg.Provider)
	}
	if cfg.Model != "long" {
		t.Errorf("Model = %q, want long", cfg.Model)
	}
	if cfg.Google.Location != "global" || cfg.Google.Recognizer != "_" {
		t.Errorf("Google = %+v", cfg.Google)
	}
}

func TestFatalTranscriptionError(t *testing.T) {
	base := errors.New("socket gone")
	err := NewFatalTranscriptionError(base)

	if !IsFatalTranscriptionError(err) {
		t.Error("expected fatal error")
	}
	if !IsFatalTranscriptionError(fmt.Errorf("wrapped: %w", err)) {
		t.Error("wrapped fatal error should still be fatal")
	}
	if !errors.Is(err, base) {
		t.Error("fatal error should unwrap to its cause")
	}
	if IsFatalTranscriptionError(base) {
		t.Error("plain error should not be fatal")
	}
	if NewFatalTranscriptionError(nil) != nil {
		t.Error("NewFatalTranscriptionError(nil) should be nil")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in, google, deepgram string
	}{
		{"", "en-US", ""},
		{"en", "en-US", "en-US"},
		{"en_US", "en-US", "en-US"},
		{"es", "es-ES", "es"},
		{"pt-PT", "pt-PT", "pt-PT"},
		{"zh", "cmn-Hans-CN", "zh"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeGoogleLanguage(tt.in); got != tt.google {
				t.Errorf("normalizeGoogleLanguage(%q) = %q, want %q", tt.in, got, tt.google)
			}
			if got := normalizeDeepgramLanguage(tt.in); got != tt.deepgram {
				t.Errorf("normalizeDeepgramLanguage(%q) = %q, want %q", tt.in, got, tt.deepgram)
			}
		})
	}
}

func TestConvertToWAV(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	wav := convertToWAV(pcm, 16000, 2)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 2 {
		t.Errorf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 64000 {
		t.Errorf("byte rate = %d, want 64000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}
