package speech

import "time"

// Transcript is one recognition result as delivered to a Listener.
type Transcript struct {
	SessionID string
	Text      string
	IsFinal   bool
	Received  time.Time
}

// Listener receives transcripts from a Recognizer. isFinal is false for interim
// hypotheses that a later call may revise.
type Listener interface {
	TranscriptReceived(text string, isFinal bool)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(text string, isFinal bool)

func (f ListenerFunc) TranscriptReceived(text string, isFinal bool) { f(text, isFinal) }

// ErrorListener is implemented by listeners that want backend errors.
type ErrorListener interface {
	RecognitionFailed(err error)
}

// SessionListener is implemented by listeners that track session boundaries.
// SessionEnded is always the last callback of a session and is delivered even
// after the transcript cutoff.
type SessionListener interface {
	SessionStarted(id string)
	SessionEnded(id string)
}

type multiListener []Listener

// Multi fans every callback out to ls in order. Nil entries are skipped and the
// optional interfaces are forwarded to members that implement them.
func Multi(ls ...Listener) Listener {
	m := make(multiListener, 0, len(ls))
	for _, l := range ls {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m multiListener) TranscriptReceived(text string, isFinal bool) {
	for _, l := range m {
		l.TranscriptReceived(text, isFinal)
	}
}

func (m multiListener) RecognitionFailed(err error) {
	for _, l := range m {
		if el, ok := l.(ErrorListener); ok {
			el.RecognitionFailed(err)
		}
	}
}

func (m multiListener) SessionStarted(id string) {
	for _, l := range m {
		if sl, ok := l.(SessionListener); ok {
			sl.SessionStarted(id)
		}
	}
}

func (m multiListener) SessionEnded(id string) {
	for _, l := range m {
		if sl, ok := l.(SessionListener); ok {
			sl.SessionEnded(id)
		}
	}
}
