package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

// maxWhisperUpload is the API's file size limit.
const maxWhisperUpload = 25 * 1024 * 1024

// WhisperAdapter buffers a session's audio and transcribes it in one request on Finalize.
// It never produces interim results.
type WhisperAdapter struct {
	client     *openai.Client
	model      string
	language   string
	sampleRate int
	channels   int

	mu        sync.Mutex
	audio     bytes.Buffer
	started   bool
	finalized bool
	closed    bool
	resultsCh chan TranscriptionResult
}

func NewWhisperAdapter(baseURL, apiKey, model, lang string, sampleRate, channels int) *WhisperAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &WhisperAdapter{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		language:   lang,
		sampleRate: sampleRate,
		channels:   channels,
		resultsCh:  make(chan TranscriptionResult, 2),
	}
}

func (a *WhisperAdapter) Start(ctx context.Context, lang string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}
	if lang != "" {
		a.language = lang
	}
	a.started = true
	return nil
}

func (a *WhisperAdapter) SendChunk(audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return ErrNotStarted
	}
	if a.finalized {
		return fmt.Errorf("whisper: audio after finalize")
	}
	if a.audio.Len()+len(audio) > maxWhisperUpload-44 {
		return NewFatalTranscriptionError(fmt.Errorf("whisper: recording exceeds %d byte upload limit", maxWhisperUpload))
	}
	a.audio.Write(audio)
	return nil
}

func (a *WhisperAdapter) Results() <-chan TranscriptionResult {
	return a.resultsCh
}

// Finalize uploads the buffered audio and emits the transcript as a single final result.
func (a *WhisperAdapter) Finalize(ctx context.Context) error {
	a.mu.Lock()
	if !a.started || a.finalized {
		a.mu.Unlock()
		return nil
	}
	a.finalized = true
	pcm := append([]byte(nil), a.audio.Bytes()...)
	a.audio.Reset()
	a.mu.Unlock()

	if len(pcm) == 0 {
		return nil
	}

	req := openai.AudioRequest{
		Model:    a.model,
		Reader:   bytes.NewReader(convertToWAV(pcm, a.sampleRate, a.channels)),
		FilePath: "audio.wav",
		Language: a.language,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	if err != nil {
		log.Printf("whisper: API call failed after %v: %v", time.Since(start), err)
		err = fmt.Errorf("whisper transcription: %w", err)
		a.send(TranscriptionResult{Error: err})
		return err
	}

	log.Printf("whisper: transcribed %d bytes in %v", len(pcm), time.Since(start))
	if text := strings.TrimSpace(resp.Text); text != "" {
		a.send(TranscriptionResult{Text: text, IsFinal: true})
	}
	return nil
}

func (a *WhisperAdapter) send(r TranscriptionResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.resultsCh <- r:
	default:
		log.Printf("whisper: result dropped, channel full")
	}
}

func (a *WhisperAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.started = false
	close(a.resultsCh)
	return nil
}
