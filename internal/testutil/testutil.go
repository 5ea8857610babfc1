// Package testutil holds fakes for the audio source and streaming backend
// shared by the speech, daemon and command tests.
package testutil

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/transcriber"
)

// MockAdapter implements transcriber.StreamingAdapter for testing. Results
// are injected with Emit.
type MockAdapter struct {
	StartErr error
	// OnFinalize runs on every Finalize call, typically to Emit trailing results.
	OnFinalize func(*MockAdapter)

	mu        sync.Mutex
	started   bool
	closed    bool
	language  string
	chunks    [][]byte
	finalized int
	results   chan transcriber.TranscriptionResult
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{results: make(chan transcriber.TranscriptionResult, 100)}
}

func (a *MockAdapter) Start(ctx context.Context, lang string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.StartErr != nil {
		return a.StartErr
	}
	a.started = true
	a.language = lang
	return nil
}

func (a *MockAdapter) SendChunk(audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return transcriber.ErrNotStarted
	}
	a.chunks = append(a.chunks, audio)
	return nil
}

func (a *MockAdapter) Results() <-chan transcriber.TranscriptionResult {
	return a.results
}

func (a *MockAdapter) Finalize(ctx context.Context) error {
	a.mu.Lock()
	a.finalized++
	fn := a.OnFinalize
	a.mu.Unlock()
	if fn != nil {
		fn(a)
	}
	return nil
}

func (a *MockAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.results)
	}
	return nil
}

// Emit simulates a backend result. It reports false once the adapter is closed.
func (a *MockAdapter) Emit(r transcriber.TranscriptionResult) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	select {
	case a.results <- r:
		return true
	default:
		return false
	}
}

func (a *MockAdapter) IsClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *MockAdapter) Language() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

func (a *MockAdapter) FinalizeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finalized
}

func (a *MockAdapter) ChunkCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chunks)
}

// MockSource implements recording.Source. Frames and errors are pushed with
// Send and Fail; Stop closes both channels.
type MockSource struct {
	StartErr error

	mu      sync.Mutex
	frames  chan recording.AudioFrame
	errs    chan error
	stopped bool
}

func (s *MockSource) Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return nil, nil, s.StartErr
	}
	s.frames = make(chan recording.AudioFrame, 10)
	s.errs = make(chan error, 1)
	return s.frames, s.errs, nil
}

func (s *MockSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames != nil && !s.stopped {
		s.stopped = true
		close(s.frames)
		close(s.errs)
	}
	return nil
}

func (s *MockSource) Send(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped && s.frames != nil {
		s.frames <- MockAudioFrame(data)
	}
}

func (s *MockSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped && s.errs != nil {
		s.errs <- err
	}
}

func (s *MockSource) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// MockAudioFrame wraps data in a frame; nil data yields 1 KiB of ramp bytes.
func MockAudioFrame(data []byte) recording.AudioFrame {
	if data == nil {
		data = make([]byte, 1024)
		for i := range data {
			data[i] = byte(i % 256)
		}
	}

	return recording.AudioFrame{
		Data:      data,
		Timestamp: time.Now(),
	}
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// CreateTempConfigFile writes content to config.toml in a fresh temp dir and returns its path.
func CreateTempConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := t.TempDir() + "/config.toml"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return path
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan string)
	go func() {
		out, _ := io.ReadAll(r)
		done <- string(out)
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}
