package transcriber

import "context"

// TranscriptionResult is a single result from a streaming adapter.
type TranscriptionResult struct {
	Text    string // partial or final text
	IsFinal bool   // false for interim results that may be revised
	Error   error  // non-nil if the backend reported an error
}

// StreamingAdapter sends audio to a recognition backend in real time.
type StreamingAdapter interface {
	// Start opens the backend stream. An empty language keeps the adapter's default.
	Start(ctx context.Context, language string) error

	// SendChunk sends raw s16le PCM audio.
	SendChunk(audio []byte) error

	// Results is closed once the adapter stops producing results.
	Results() <-chan TranscriptionResult

	// Finalize signals end of audio and waits, bounded by ctx, for the trailing final results.
	Finalize(ctx context.Context) error

	// Close releases the stream. Safe to call on an adapter that never started.
	Close() error
}
