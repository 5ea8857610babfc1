package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/transcriber"
)

var ErrAlreadyRecording = errors.New("speech: already recording")

type State int32

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures a Recognizer. NewAdapter and NewSource are called once per session.
type Options struct {
	NewAdapter func() (transcriber.StreamingAdapter, error)
	NewSource  func() (recording.Source, error)
	Language   string

	// FlushOnStop finalizes the backend on StopRecording so trailing results are delivered.
	FlushOnStop  bool
	FlushTimeout time.Duration

	// MaxDuration ends a session as if StopRecording had been called. Zero disables it.
	MaxDuration time.Duration

	// StopOnFinal ends the session after the first final transcript is delivered.
	StopOnFinal bool

	// Dispatch runs each callback. Nil runs callbacks on the session's dispatch goroutine.
	// Implementations must preserve call order.
	Dispatch func(func())

	QueueSize int
}

const (
	defaultFlushTimeout = 3 * time.Second
	defaultQueueSize    = 64
)

// Recognizer runs at most one recording session at a time and delivers its
// transcripts to the registered Listener.
type Recognizer struct {
	opts Options

	listener atomic.Pointer[listenerSlot]
	state    atomic.Int32
	last     atomic.Pointer[Transcript]

	callbacks callbackTracker

	mu     sync.Mutex // serializes Start/Stop and guards active and live
	active *session
	live   map[*session]struct{}
}

type listenerSlot struct {
	l Listener
}

func New(opts Options) *Recognizer {
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultFlushTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Recognizer{
		opts: opts,
		live: make(map[*session]struct{}),
	}
}

// SetListener installs l as the only listener and returns a func that removes it.
// The returned func does nothing if another listener has replaced l since.
func (r *Recognizer) SetListener(l Listener) (unset func()) {
	if l == nil {
		r.listener.Store(nil)
		return func() {}
	}
	slot := &listenerSlot{l: l}
	r.listener.Store(slot)
	return func() {
		r.listener.CompareAndSwap(slot, nil)
	}
}

func (r *Recognizer) currentListener() Listener {
	if slot := r.listener.Load(); slot != nil {
		return slot.l
	}
	return nil
}

func (r *Recognizer) State() State {
	return State(r.state.Load())
}

func (r *Recognizer) IsRecording() bool {
	return r.State() == Recording
}

// Last returns the most recently delivered transcript.
func (r *Recognizer) Last() (Transcript, bool) {
	if t := r.last.Load(); t != nil {
		return *t, true
	}
	return Transcript{}, false
}

// StartRecording opens a backend stream and starts audio capture. ctx bounds the
// whole session: cancelling it ends the session without a flush.
func (r *Recognizer) StartRecording(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return ErrAlreadyRecording
	}
	if r.opts.NewAdapter == nil || r.opts.NewSource == nil {
		return errors.New("speech: recognizer has no adapter or audio source configured")
	}

	adapter, err := r.opts.NewAdapter()
	if err != nil {
		return fmt.Errorf("create transcriber: %w", err)
	}
	source, err := r.opts.NewSource()
	if err != nil {
		return fmt.Errorf("create audio source: %w", err)
	}

	s := newSession(r, adapter, source)
	if err := s.start(ctx); err != nil {
		return err
	}

	r.active = s
	r.live[s] = struct{}{}
	r.state.Store(int32(Recording))
	log.Printf("speech: session %s started", s.id)
	return nil
}

// StopRecording ends the active session. It returns nil when idle. Once it
// returns no further transcripts are delivered for the stopped session.
func (r *Recognizer) StopRecording() error {
	r.stop(r.opts.FlushOnStop)
	return nil
}

// Cancel ends the active session without flushing pending results.
func (r *Recognizer) Cancel() {
	r.stop(false)
}

func (r *Recognizer) stop(flush bool) {
	r.mu.Lock()
	s := r.detachLocked(r.active)
	var draining []*session
	for other := range r.live {
		if other != s {
			draining = append(draining, other)
		}
	}
	r.mu.Unlock()

	// sessions already ending on their own are cut off now
	for _, other := range draining {
		other.cut()
	}
	if s != nil {
		s.shutdown(flush)
		r.forget(s)
	}
}

// endSession is used when a session ends itself. It must not run on a session goroutine.
func (r *Recognizer) endSession(s *session, flush bool, reason string) {
	r.mu.Lock()
	detached := r.detachLocked(s) != nil
	r.mu.Unlock()

	if detached {
		log.Printf("speech: session %s ending: %s", s.id, reason)
	}
	s.shutdown(flush)
	r.forget(s)
}

func (r *Recognizer) detachLocked(s *session) *session {
	if s == nil || r.active != s {
		return nil
	}
	r.active = nil
	r.state.Store(int32(Idle))
	return s
}

func (r *Recognizer) forget(s *session) {
	r.mu.Lock()
	delete(r.live, s)
	r.mu.Unlock()
}

func (r *Recognizer) dispatch(fn func()) {
	run := func() {
		id := r.callbacks.enter()
		defer r.callbacks.exit(id)
		fn()
	}
	if r.opts.Dispatch != nil {
		r.opts.Dispatch(run)
		return
	}
	run()
}
