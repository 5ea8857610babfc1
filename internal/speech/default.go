package speech

import (
	"os"
	"sync"
	"time"

	"github.com/fluidvision/decibel/internal/provider"
	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/transcriber"
)

var (
	defaultMu   sync.Mutex
	defaultOpts *Options
	defaultOnce sync.Once
	defaultRec  *Recognizer
)

// DefaultOptions streams microphone audio from PipeWire to Google Speech, using
// the project named by GOOGLE_CLOUD_PROJECT and application default credentials.
func DefaultOptions() Options {
	cfg := transcriber.DefaultConfig()
	cfg.Google.ProjectID = os.Getenv(provider.EnvGoogleProject)
	cfg.Google.CredentialsFile = os.Getenv(provider.EnvGoogleCredentials)

	return Options{
		NewAdapter: func() (transcriber.StreamingAdapter, error) {
			return transcriber.NewStreamingAdapter(cfg)
		},
		NewSource: func() (recording.Source, error) {
			return recording.NewDefaultRecorder(), nil
		},
		FlushOnStop:  true,
		FlushTimeout: defaultFlushTimeout,
		MaxDuration:  5 * time.Minute,
	}
}

// SetDefaultOptions configures the instance returned by Default. It reports
// false when Default has already been created.
func SetDefaultOptions(opts Options) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRec != nil {
		return false
	}
	defaultOpts = &opts
	return true
}

// Default returns the process-wide Recognizer, creating it on first use.
// Programs that own their composition root should call New instead.
func Default() *Recognizer {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		opts := DefaultOptions()
		if defaultOpts != nil {
			opts = *defaultOpts
		}
		defaultRec = New(opts)
	})
	return defaultRec
}
