package speech

import (
	"errors"
	"testing"
)

func TestListenerFunc(t *testing.T) {
	var gotText string
	var gotFinal bool
	var l Listener = ListenerFunc(func(text string, isFinal bool) {
		gotText, gotFinal = text, isFinal
	})

	l.TranscriptReceived("hello", true)
	if gotText != "hello" || !gotFinal {
		t.Errorf("got (%q, %v), want (hello, true)", gotText, gotFinal)
	}
	if _, ok := l.(ErrorListener); ok {
		t.Error("ListenerFunc should not implement ErrorListener")
	}
}

func TestMulti(t *testing.T) {
	a := &recordingListener{}
	b := &recordingListener{}
	var plain []string
	c := ListenerFunc(func(text string, isFinal bool) { plain = append(plain, text) })

	m := Multi(a, nil, c, b)
	m.TranscriptReceived("x", false)
	m.TranscriptReceived("y", true)

	for _, l := range []*recordingListener{a, b} {
		got := l.transcripts()
		if len(got) != 2 || got[0] != (received{"x", false}) || got[1] != (received{"y", true}) {
			t.Errorf("transcripts = %+v", got)
		}
	}
	if len(plain) != 2 {
		t.Errorf("plain listener got %v", plain)
	}

	el, ok := m.(ErrorListener)
	if !ok {
		t.Fatal("Multi should forward RecognitionFailed")
	}
	el.RecognitionFailed(errors.New("boom"))
	if len(a.errors()) != 1 || len(b.errors()) != 1 {
		t.Error("errors not forwarded to every ErrorListener")
	}

	sl, ok := m.(SessionListener)
	if !ok {
		t.Fatal("Multi should forward session callbacks")
	}
	sl.SessionStarted("s1")
	sl.SessionEnded("s1")
	started, ended := b.sessions()
	if len(started) != 1 || len(ended) != 1 {
		t.Errorf("sessions = %v / %v", started, ended)
	}
}
