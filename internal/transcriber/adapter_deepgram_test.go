package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestDeepgramAdapter_ImplementsStreamingAdapter(t *testing.T) {
	var _ StreamingAdapter = (*DeepgramAdapter)(nil)
}

func TestDeepgramAdapter_BuildURL(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		language   string
		sampleRate int
		keywords   []string
		wantURL    []string
		notWant    []string
	}{
		{
			name:       "english",
			model:      "nova-3",
			language:   "en",
			sampleRate: 16000,
			wantURL:    []string{"model=nova-3", "language=en-US", "encoding=linear16", "sample_rate=16000", "interim_results=true"},
		},
		{
			name:       "spanish at 48k",
			model:      "nova-2",
			language:   "es",
			sampleRate: 48000,
			wantURL:    []string{"model=nova-2", "language=es", "sample_rate=48000"},
		},
		{
			name:       "auto-detect with keywords",
			model:      "nova-3",
			sampleRate: 16000,
			keywords:   []string{"Adele", "Drake"},
			wantURL:    []string{"keywords=Adele%2CDrake"},
			notWant:    []string{"language="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewDeepgramAdapter("wss://api.deepgram.com/v1/listen", "test-key", tt.model, tt.language, tt.keywords, tt.sampleRate, 1)

			url, err := adapter.buildURL()
			if err != nil {
				t.Fatalf("buildURL() error = %v", err)
			}
			if !strings.HasPrefix(url, "wss://api.deepgram.com/v1/listen?") {
				t.Errorf("buildURL() = %q, want listen endpoint", url)
			}
			for _, want := range tt.wantURL {
				if !strings.Contains(url, want) {
					t.Errorf("buildURL() = %q, want to contain %q", url, want)
				}
			}
			for _, bad := range tt.notWant {
				if strings.Contains(url, bad) {
					t.Errorf("buildURL() = %q, should not contain %q", url, bad)
				}
			}
		})
	}
}

func TestDeepgramAdapter_NotStarted(t *testing.T) {
	adapter := NewDeepgramAdapter("wss://api.deepgram.com/v1/listen", "test-key", "nova-3", "en", nil, 16000, 1)

	if err := adapter.SendChunk([]byte("audio data")); !errors.Is(err, ErrNotStarted) {
		t.Errorf("SendChunk() error = %v, want ErrNotStarted", err)
	}
	if err := adapter.Finalize(context.Background()); err != nil {
		t.Errorf("Finalize() error = %v, want nil", err)
	}
	if err := adapter.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

// mockDeepgramServer serves a websocket that hands each connection to handler.
func mockDeepgramServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Token ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func drainUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDeepgramAdapter_StartAndClose(t *testing.T) {
	server := mockDeepgramServer(t, func(conn *websocket.Conn) {
		metadata := deepgramWSResponse{Type: "Metadata", Metadata: &deepgramMetadata{RequestID: "test-123"}}
		_ = conn.WriteJSON(metadata)
		drainUntilClosed(conn)
	})
	defer server.Close()

	adapter := NewDeepgramAdapter(wsURL(server), "test-api-key", "nova-3", "en", nil, 16000, 1)

	if err := adapter.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := adapter.Start(context.Background(), ""); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if err := adapter.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDeepgramAdapter_StartUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := NewDeepgramAdapter(wsURL(server), "bad-key", "nova-3", "en", nil, 16000, 1)

	err := adapter.Start(context.Background(), "")
	if err == nil {
		t.Fatal("Start() should fail when the handshake is rejected")
	}
	if !IsFatalTranscriptionError(err) {
		t.Errorf("Start() error = %v, want fatal error", err)
	}
}

func TestDeepgramAdapter_ReceivesResults(t *testing.T) {
	server := mockDeepgramServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(deepgramWSResponse{Type: "Metadata", Metadata: &deepgramMetadata{RequestID: "test-123"}})
		_ = conn.WriteJSON(deepgramWSResponse{
			Type:    "Results",
			Channel: &deepgramChannel{Alternatives: []deepgramAlternative{{Transcript: "hello", Confidence: 0.95}}},
		})
		_ = conn.WriteJSON(deepgramWSResponse{
			Type:    "Results",
			Channel: &deepgramChannel{Alternatives: []deepgramAlternative{{Transcript: ""}}},
		})
		_ = conn.WriteJSON(deepgramWSResponse{
			Type:    "Results",
			IsFinal: true,
			Channel: &deepgramChannel{Alternatives: []deepgramAlternative{{Transcript: "hello world", Confidence: 0.98}}},
		})
		drainUntilClosed(conn)
	})
	defer server.Close()

	adapter := NewDeepgramAdapter(wsURL(server), "test-api-key", "nova-3", "en", nil, 16000, 1)
	if err := adapter.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer adapter.Close()

	r := nextResult(t, adapter.Results())
	if r.Text != "hello" || r.IsFinal {
		t.Errorf("interim result = %+v, want Text='hello', IsFinal=false", r)
	}
	r = nextResult(t, adapter.Results())
	if r.Text != "hello world" || !r.IsFinal {
		t.Errorf("final result = %+v, want Text='hello world', IsFinal=true", r)
	}
}

func TestDeepgramAdapter_SendsRawBinaryAudio(t *testing.T) {
	receivedAudio := make(chan []byte, 1)

	server := mockDeepgramServer(t, func(conn *websocket.Conn) {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			t.Errorf("expected binary message, got %d", msgType)
		}
		receivedAudio <- data
		drainUntilClosed(conn)
	})
	defer server.Close()

	adapter := NewDeepgramAdapter(wsURL(server), "test-api-key", "nova-3", "en", nil, 16000, 1)
	if err := adapter.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer adapter.Close()

	testAudio := []byte{0x01, 0x02, 0x03, 0x04}
	if err := adapter.SendChunk(testAudio); err != nil {
		t.Errorf("SendChunk() error = %v", err)
	}

	select {
	case audio := <-receivedAudio:
		if string(audio) != string(testAudio) {
			t.Errorf("received audio = %v, want %v", audio, testAudio)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for audio")
	}
}

func TestDeepgramAdapter_FinalizeSendsCloseStream(t *testing.T) {
	server := mockDeepgramServer(t, func(conn *websocket.Conn) {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.TextMessage && strings.Contains(string(data), "CloseStream") {
				_ = conn.WriteJSON(deepgramWSResponse{
					Type:    "Results",
					IsFinal: true,
					Channel: &deepgramChannel{Alternatives: []deepgramAlternative{{Transcript: "flushed"}}},
				})
				_ = conn.WriteJSON(deepgramWSResponse{Type: "Metadata", Metadata: &deepgramMetadata{RequestID: "test-123"}})
				drainUntilClosed(conn)
				return
			}
		}
	})
	defer server.Close()

	adapter := NewDeepgramAdapter(wsURL(server), "test-api-key", "nova-3", "en", nil, 16000, 1)
	if err := adapter.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer adapter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- adapter.Finalize(ctx) }()

	r := nextResult(t, adapter.Results())
	if r.Text != "flushed" || !r.IsFinal {
		t.Errorf("result = %+v, want final 'flushed'", r)
	}
	if err := <-done; err != nil {
		t.Errorf("Finalize() error = %v", err)
	}
}

func TestDeepgramAdapter_HandlesError(t *testing.T) {
	server := mockDeepgramServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(deepgramWSResponse{
			Type:  "Error",
			Error: &deepgramError{Type: "AuthError", Message: "Invalid API key"},
		})
		drainUntilClosed(conn)
	})
	defer server.Close()

	adapter := NewDeepgramAdapter(wsURL(server), "test-api-key", "nova-3", "en", nil, 16000, 1)
	if err := adapter.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer adapter.Close()

	r := nextResult(t, adapter.Results())
	if r.Error == nil || !strings.Contains(r.Error.Error(), "Invalid API key") {
		t.Errorf("result = %+v, want error containing 'Invalid API key'", r)
	}
}

func TestDeepgramAdapter_CloseClosesResults(t *testing.T) {
	server := mockDeepgramServer(t, drainUntilClosed)
	defer server.Close()

	adapter := NewDeepgramAdapter(wsURL(server), "test-api-key", "nova-3", "en", nil, 16000, 1)

	ctx, cancel := context.WithCancel(context.Background())
	if err := adapter.Start(ctx, ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	if err := adapter.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	select {
	case _, ok := <-adapter.Results():
		if ok {
			for range adapter.Results() {
			}
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for results channel to close")
	}
}
