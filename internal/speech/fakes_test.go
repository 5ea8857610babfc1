package speech

import (
	"sync"
	"testing"
	"time"

	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/testutil"
	"github.com/fluidvision/decibel/internal/transcriber"
)

type received struct {
	text    string
	isFinal bool
}

type recordingListener struct {
	mu      sync.Mutex
	got     []received
	errs    []error
	started []string
	ended   []string
	onText  func(text string, isFinal bool)
}

func (l *recordingListener) TranscriptReceived(text string, isFinal bool) {
	l.mu.Lock()
	l.got = append(l.got, received{text, isFinal})
	fn := l.onText
	l.mu.Unlock()
	if fn != nil {
		fn(text, isFinal)
	}
}

func (l *recordingListener) RecognitionFailed(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *recordingListener) SessionStarted(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, id)
}

func (l *recordingListener) SessionEnded(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended = append(l.ended, id)
}

func (l *recordingListener) transcripts() []received {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]received(nil), l.got...)
}

func (l *recordingListener) errors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}

func (l *recordingListener) sessions() (started, ended []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.started...), append([]string(nil), l.ended...)
}

// newTestRecognizer returns a recognizer wired to a single fake adapter and source.
func newTestRecognizer(opts Options) (*Recognizer, *testutil.MockAdapter, *testutil.MockSource) {
	adapter := testutil.NewMockAdapter()
	source := &testutil.MockSource{}
	opts.NewAdapter = func() (transcriber.StreamingAdapter, error) { return adapter, nil }
	opts.NewSource = func() (recording.Source, error) { return source, nil }
	return New(opts), adapter, source
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	t.Logf("waiting for %s", what)
	testutil.WaitForCondition(t, cond, 2*time.Second)
}

// sessionOrder logs session callbacks in the order they arrive.
type sessionOrder struct {
	mu     sync.Mutex
	events []string
}

func (o *sessionOrder) TranscriptReceived(string, bool) {}

func (o *sessionOrder) SessionStarted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "start:"+id)
}

func (o *sessionOrder) SessionEnded(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "end:"+id)
}

func (o *sessionOrder) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}
