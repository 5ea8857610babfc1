package publish

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// Config describes the NATS connection. tls:// server URLs are verified
// against the system roots, or TLSCAFile when set. TLSCertFile and
// TLSKeyFile add a client certificate. TLSInsecure turns verification off.
type Config struct {
	Servers        []string
	SubjectPrefix  string
	Token          string
	Username       string
	Password       string
	TLSCAFile      string
	TLSCertFile    string
	TLSKeyFile     string
	TLSInsecure    bool
	ConnectTimeout time.Duration
}

type TranscriptEvent struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	IsFinal   bool      `json:"is_final"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionEvent struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type MatchEvent struct {
	SessionID  string    `json:"session_id"`
	Term       string    `json:"term"`
	Artist     string    `json:"artist"`
	TrackName  string    `json:"track_name"`
	AlbumName  string    `json:"album_name"`
	PreviewURL string    `json:"preview_url"`
	Timestamp  time.Time `json:"timestamp"`
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
	Close()
}

// Publisher forwards recognizer callbacks to NATS subjects under a common prefix.
type Publisher struct {
	conn   conn
	prefix string
	clock  func() time.Time

	mu        sync.Mutex
	sessionID string
}

// Connect dials NATS. It returns a nil Publisher and no error when no servers are configured.
func Connect(cfg Config) (*Publisher, error) {
	if len(cfg.Servers) == 0 {
		return nil, nil
	}

	url := strings.Join(cfg.Servers, ",")
	nc, err := nats.Connect(url, cfg.options()...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Printf("publish: connected to %s", url)
	return newPublisher(nc, cfg.SubjectPrefix), nil
}

func (cfg Config) options() []nats.Option {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	options := []nats.Option{
		nats.Name("decibel"),
		nats.Timeout(timeout),
	}
	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSCAFile != "" {
		options = append(options, nats.RootCAs(cfg.TLSCAFile))
	}
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		options = append(options, nats.ClientCert(cfg.TLSCertFile, cfg.TLSKeyFile))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}
	return options
}

func newPublisher(c conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = "decibel"
	}
	return &Publisher{conn: c, prefix: strings.TrimSuffix(prefix, "."), clock: time.Now}
}

func (p *Publisher) subject(name string) string {
	return p.prefix + "." + name
}

func (p *Publisher) publish(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("publish: encode %s: %v", name, err)
		return
	}
	if err := p.conn.Publish(p.subject(name), data); err != nil {
		log.Printf("publish: %s: %v", p.subject(name), err)
	}
}

func (p *Publisher) currentSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

func (p *Publisher) TranscriptReceived(text string, isFinal bool) {
	p.publish("transcript", TranscriptEvent{
		SessionID: p.currentSession(),
		Text:      text,
		IsFinal:   isFinal,
		Timestamp: p.clock().UTC(),
	})
}

func (p *Publisher) RecognitionFailed(err error) {
	p.publish("session", SessionEvent{
		SessionID: p.currentSession(),
		State:     "error",
		Error:     err.Error(),
		Timestamp: p.clock().UTC(),
	})
}

func (p *Publisher) SessionStarted(id string) {
	p.mu.Lock()
	p.sessionID = id
	p.mu.Unlock()
	p.publish("session", SessionEvent{SessionID: id, State: "started", Timestamp: p.clock().UTC()})
}

func (p *Publisher) SessionEnded(id string) {
	p.publish("session", SessionEvent{SessionID: id, State: "ended", Timestamp: p.clock().UTC()})
}

// SongMatched announces the song found for a final transcript.
func (p *Publisher) SongMatched(ev MatchEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.clock().UTC()
	}
	p.publish("match", ev)
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn.Close()
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
