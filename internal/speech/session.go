package speech

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/transcriber"
)

type eventKind int

const (
	evTranscript eventKind = iota
	evError
	evBarrier
)

type event struct {
	kind       eventKind
	transcript Transcript
	err        error
	done       chan struct{}
	endReason  string // non-empty ends the session once the event is delivered
}

// session is one StartRecording..StopRecording span. Audio flows
// source -> sendAudio -> adapter, results flow adapter -> receiveResults -> queue -> dispatchLoop.
type session struct {
	r       *Recognizer
	id      string
	adapter transcriber.StreamingAdapter
	source  recording.Source

	ctx    context.Context
	cancel context.CancelFunc

	queue    chan event
	flushReq chan chan struct{}

	gate    sync.Mutex
	stopped bool

	wg   sync.WaitGroup // sendAudio, receiveResults, watch
	once sync.Once
}

func newSession(r *Recognizer, adapter transcriber.StreamingAdapter, source recording.Source) *session {
	return &session{
		r:        r,
		id:       uuid.NewString(),
		adapter:  adapter,
		source:   source,
		queue:    make(chan event, r.opts.QueueSize),
		flushReq: make(chan chan struct{}),
	}
}

func (s *session) start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.adapter.Start(s.ctx, s.r.opts.Language); err != nil {
		s.cancel()
		return fmt.Errorf("start transcriber: %w", err)
	}

	frameCh, errCh, err := s.source.Start(s.ctx)
	if err != nil {
		s.cancel()
		if cerr := s.adapter.Close(); cerr != nil {
			log.Printf("speech: close transcriber: %v", cerr)
		}
		return fmt.Errorf("start audio capture: %w", err)
	}

	s.wg.Add(3)
	go s.sendAudio(frameCh, errCh)
	go s.receiveResults()
	go s.watch()
	go s.dispatchLoop()
	return nil
}

func (s *session) enqueue(ev event) bool {
	select {
	case s.queue <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *session) sendAudio(frameCh <-chan recording.AudioFrame, errCh <-chan error) {
	defer s.wg.Done()

	for frameCh != nil || errCh != nil {
		select {
		case <-s.ctx.Done():
			return

		case frame, ok := <-frameCh:
			if !ok {
				frameCh = nil
				continue
			}
			if err := s.adapter.SendChunk(frame.Data); err != nil {
				if transcriber.IsFatalTranscriptionError(err) {
					s.enqueue(event{kind: evError, err: err, endReason: "send failed"})
					return
				}
				// adapters reconnect on their own
				log.Printf("speech: send error: %v", err)
			}

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				s.enqueue(event{kind: evError, err: fmt.Errorf("audio capture: %w", err), endReason: "audio capture failed"})
				return
			}
		}
	}

	go s.r.endSession(s, true, "audio source ended")
}

func (s *session) receiveResults() {
	defer s.wg.Done()

	results := s.adapter.Results()
	for {
		select {
		case <-s.ctx.Done():
			return

		case done := <-s.flushReq:
			results = s.drain(results)
			s.enqueue(event{kind: evBarrier, done: done})

		case res, ok := <-results:
			if !ok {
				// keep serving flush requests until the session ends
				results = nil
				continue
			}
			s.handleResult(res)
		}
	}
}

// drain forwards results that are already buffered without waiting for more.
func (s *session) drain(results <-chan transcriber.TranscriptionResult) <-chan transcriber.TranscriptionResult {
	for results != nil {
		select {
		case res, ok := <-results:
			if !ok {
				return nil
			}
			s.handleResult(res)
		default:
			return results
		}
	}
	return nil
}

func (s *session) handleResult(res transcriber.TranscriptionResult) {
	if res.Error != nil {
		ev := event{kind: evError, err: res.Error}
		if transcriber.IsFatalTranscriptionError(res.Error) {
			ev.endReason = "fatal backend error"
		}
		s.enqueue(ev)
		return
	}
	if res.Text == "" {
		return
	}

	ev := event{
		kind: evTranscript,
		transcript: Transcript{
			SessionID: s.id,
			Text:      res.Text,
			IsFinal:   res.IsFinal,
			Received:  time.Now(),
		},
	}
	if res.IsFinal && s.r.opts.StopOnFinal {
		ev.endReason = "final transcript received"
	}
	s.enqueue(ev)
}

func (s *session) watch() {
	defer s.wg.Done()

	var timeout <-chan time.Time
	if d := s.r.opts.MaxDuration; d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-s.ctx.Done():
		go s.r.endSession(s, false, "context done")
	case <-timeout:
		go s.r.endSession(s, true, "max duration reached")
	}
}

func (s *session) dispatchLoop() {
	defer s.r.dispatch(func() {
		if sl, ok := s.r.currentListener().(SessionListener); ok {
			sl.SessionEnded(s.id)
		}
	})

	// SessionStarted always precedes SessionEnded, even for a session cancelled at once
	s.r.dispatch(func() {
		if sl, ok := s.r.currentListener().(SessionListener); ok {
			sl.SessionStarted(s.id)
		}
	})

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.queue:
			s.handleEvent(ev)
		}
	}
}

func (s *session) handleEvent(ev event) {
	switch ev.kind {
	case evBarrier:
		s.r.dispatch(func() { close(ev.done) })

	case evTranscript:
		t := ev.transcript
		s.deliver(func(l Listener) {
			s.r.last.Store(&t)
			if l != nil {
				l.TranscriptReceived(t.Text, t.IsFinal)
			}
		}, ev.endReason)

	case evError:
		log.Printf("speech: session %s: %v", s.id, ev.err)
		s.deliver(func(l Listener) {
			if el, ok := l.(ErrorListener); ok {
				el.RecognitionFailed(ev.err)
			}
		}, ev.endReason)
	}
}

// deliver runs fn with the current listener unless the session has been cut off.
func (s *session) deliver(fn func(Listener), endReason string) {
	s.r.dispatch(func() {
		s.gate.Lock()
		if s.stopped {
			s.gate.Unlock()
			return
		}
		s.gate.Unlock()

		fn(s.r.currentListener())

		if endReason != "" {
			go s.r.endSession(s, false, endReason)
		}
	})
}

// cut stops delivery of transcripts and errors. A callback already running is not interrupted.
func (s *session) cut() {
	s.gate.Lock()
	s.stopped = true
	s.gate.Unlock()
}

func (s *session) shutdown(flush bool) {
	s.once.Do(func() {
		if err := s.source.Stop(); err != nil {
			log.Printf("speech: stop audio source: %v", err)
		}
		if flush {
			s.flush()
		}

		s.cut()
		s.cancel()

		if err := s.adapter.Close(); err != nil {
			log.Printf("speech: close transcriber: %v", err)
		}
		s.wg.Wait()
		log.Printf("speech: session %s stopped", s.id)
	})
}

// flush finalizes the backend and waits until everything it produced has been dispatched.
func (s *session) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), s.r.opts.FlushTimeout)
	defer cancel()

	if err := s.adapter.Finalize(ctx); err != nil {
		log.Printf("speech: session %s finalize: %v", s.id, err)
	}

	// stopped from inside a callback: the dispatcher is busy with us
	if s.r.callbacks.inCallback() {
		return
	}

	done := make(chan struct{})
	select {
	case s.flushReq <- done:
	case <-ctx.Done():
		return
	case <-s.ctx.Done():
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("speech: session %s flush timed out", s.id)
	case <-s.ctx.Done():
	}
}
