package transcriber

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// DeepgramAdapter implements StreamingAdapter for Deepgram live transcription
type DeepgramAdapter struct {
	endpoint   string
	apiKey     string
	model      string
	language   string
	keywords   []string
	sampleRate int
	channels   int

	mu        sync.Mutex // guards conn, started and writes
	conn      *websocket.Conn
	started   bool
	resultsCh chan TranscriptionResult
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	maxRetries  int
	retryDelays []time.Duration

	finalizeDone chan struct{}
}

type deepgramCloseStream struct {
	Type string `json:"type"`
}

type deepgramWSResponse struct {
	Type        string            `json:"type"`
	Channel     *deepgramChannel  `json:"channel,omitempty"`
	Metadata    *deepgramMetadata `json:"metadata,omitempty"`
	Error       *deepgramError    `json:"error,omitempty"`
	Duration    float64           `json:"duration,omitempty"`
	Start       float64           `json:"start,omitempty"`
	IsFinal     bool              `json:"is_final,omitempty"`
	SpeechFinal bool              `json:"speech_final,omitempty"`
	FromFinal   bool              `json:"from_finalize,omitempty"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives,omitempty"`
}

type deepgramAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type deepgramMetadata struct {
	RequestID string `json:"request_id"`
	ModelInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"model_info"`
}

type deepgramError struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

// NewDeepgramAdapter creates a streaming adapter for the websocket endpoint
// (e.g. wss://api.deepgram.com/v1/listen).
func NewDeepgramAdapter(endpoint, apiKey, model, lang string, keywords []string, sampleRate, channels int) *DeepgramAdapter {
	return &DeepgramAdapter{
		endpoint:     endpoint,
		apiKey:       apiKey,
		model:        model,
		language:     lang,
		keywords:     keywords,
		sampleRate:   sampleRate,
		channels:     channels,
		resultsCh:    make(chan TranscriptionResult, 100),
		maxRetries:   3,
		retryDelays:  defaultRetryDelays,
		finalizeDone: make(chan struct{}, 1),
	}
}

func (a *DeepgramAdapter) Start(ctx context.Context, lang string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}
	if lang != "" {
		a.language = lang
	}

	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.connectLocked(); err != nil {
		a.cancel()
		return NewFatalTranscriptionError(err)
	}
	a.started = true

	a.wg.Add(1)
	go a.readLoop()

	log.Printf("deepgram: connected, model=%s, language=%s", a.model, a.language)
	return nil
}

// connectLocked dials the websocket. Must be called with mu held.
func (a *DeepgramAdapter) connectLocked() error {
	wsURL, err := a.buildURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+a.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(a.ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("deepgram: dial failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	a.conn = conn
	return nil
}

// reconnect re-dials with backoff. Returns true if the connection was restored.
func (a *DeepgramAdapter) reconnect() bool {
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := a.retryDelays[min(attempt-1, len(a.retryDelays)-1)]
			log.Printf("deepgram: reconnect attempt %d/%d after %v", attempt+1, a.maxRetries, delay)
			select {
			case <-a.ctx.Done():
				return false
			case <-time.After(delay):
			}
		} else if a.ctx.Err() != nil {
			return false
		}

		a.mu.Lock()
		if a.conn != nil {
			a.conn.Close()
			a.conn = nil
		}
		err := a.connectLocked()
		a.mu.Unlock()

		if err == nil {
			log.Printf("deepgram: reconnected")
			select {
			case a.resultsCh <- TranscriptionResult{Error: fmt.Errorf("connection interrupted, reconnected")}:
			default:
			}
			return true
		}
		log.Printf("deepgram: reconnect failed: %v", err)
	}
	return false
}

func (a *DeepgramAdapter) buildURL() (string, error) {
	u, err := url.Parse(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	q := u.Query()
	q.Set("model", a.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(a.sampleRate))
	q.Set("channels", strconv.Itoa(a.channels))
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")

	if lang := normalizeDeepgramLanguage(a.language); lang != "" {
		q.Set("language", lang)
	}
	if len(a.keywords) > 0 {
		q.Set("keywords", strings.Join(a.keywords, ","))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *DeepgramAdapter) emit(r TranscriptionResult) {
	select {
	case a.resultsCh <- r:
	case <-a.ctx.Done():
	}
}

func (a *DeepgramAdapter) readLoop() {
	defer a.wg.Done()
	defer close(a.resultsCh)

	for {
		if a.ctx.Err() != nil {
			return
		}

		a.mu.Lock()
		conn := a.conn
		a.mu.Unlock()

		if conn == nil {
			if !a.reconnect() {
				a.emit(TranscriptionResult{Error: NewFatalTranscriptionError(fmt.Errorf("deepgram: connection lost after %d attempts", a.maxRetries))})
				return
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if a.ctx.Err() != nil {
				return
			}
			// a normal close after CloseStream ends the session
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				a.signalFinalized()
				return
			}
			log.Printf("deepgram: read error: %v, attempting reconnection", err)
			if !a.reconnect() {
				a.emit(TranscriptionResult{Error: NewFatalTranscriptionError(fmt.Errorf("deepgram: websocket read: %w", err))})
				return
			}
			continue
		}

		a.handleMessage(message)
	}
}

// handleMessage turns one websocket frame into results. Unknown and
// informational frames are dropped.
func (a *DeepgramAdapter) handleMessage(message []byte) {
	var resp deepgramWSResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		log.Printf("deepgram: parse error: %v", err)
		return
	}

	switch resp.Type {
	case "Results":
		if resp.Channel == nil || len(resp.Channel.Alternatives) == 0 {
			return
		}
		if transcript := resp.Channel.Alternatives[0].Transcript; transcript != "" {
			a.emit(TranscriptionResult{Text: transcript, IsFinal: resp.IsFinal || resp.SpeechFinal})
		}

	case "Metadata":
		if resp.Metadata != nil {
			log.Printf("deepgram: request_id=%s model=%s", resp.Metadata.RequestID, resp.Metadata.ModelInfo.Name)
		}
		// the last frame after CloseStream
		a.signalFinalized()

	case "Error":
		if resp.Error == nil {
			return
		}
		msg := resp.Error.Message
		if resp.Error.Description != "" {
			msg += ": " + resp.Error.Description
		}
		log.Printf("deepgram: error: %s", msg)
		a.emit(TranscriptionResult{Error: fmt.Errorf("deepgram: %s", msg)})

	case "UtteranceEnd", "SpeechStarted":

	default:
		log.Printf("deepgram: unknown message type: %s", resp.Type)
	}
}

func (a *DeepgramAdapter) signalFinalized() {
	select {
	case a.finalizeDone <- struct{}{}:
	default:
	}
}

// SendChunk sends raw binary PCM; Deepgram does not want base64.
func (a *DeepgramAdapter) SendChunk(audio []byte) error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return ErrNotStarted
	}
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		return a.ctx.Err()
	}
	if a.conn == nil {
		a.mu.Unlock()
		return fmt.Errorf("no connection")
	}
	err := a.conn.WriteMessage(websocket.BinaryMessage, audio)
	a.mu.Unlock()

	if err == nil {
		return nil
	}

	log.Printf("deepgram: write error: %v, attempting reconnection", err)
	if a.reconnect() {
		a.mu.Lock()
		if a.conn != nil {
			err = a.conn.WriteMessage(websocket.BinaryMessage, audio)
		}
		a.mu.Unlock()
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("websocket write: %w", err)
}

func (a *DeepgramAdapter) Results() <-chan TranscriptionResult {
	return a.resultsCh
}

// Finalize sends CloseStream and waits for Deepgram to flush its last results.
func (a *DeepgramAdapter) Finalize(ctx context.Context) error {
	a.mu.Lock()
	if !a.started || a.conn == nil {
		a.mu.Unlock()
		return nil
	}

	// drop stale signals from earlier Metadata messages
	select {
	case <-a.finalizeDone:
	default:
	}

	err := a.conn.WriteJSON(deepgramCloseStream{Type: "CloseStream"})
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("finalize write: %w", err)
	}

	select {
	case <-a.finalizeDone:
		return nil
	case <-ctx.Done():
		log.Printf("deepgram: finalize timeout")
		return ctx.Err()
	case <-a.ctx.Done():
		return a.ctx.Err()
	}
}

func (a *DeepgramAdapter) Close() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	a.cancel()
	conn := a.conn
	a.started = false
	a.mu.Unlock()

	// close outside the lock; readLoop may be blocked on read
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}

	a.wg.Wait()
	log.Printf("deepgram: closed")
	return nil
}
