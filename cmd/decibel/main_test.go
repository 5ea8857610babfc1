package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fluidvision/decibel/internal/bus"
	"github.com/fluidvision/decibel/internal/history"
	"github.com/fluidvision/decibel/internal/itunes"
	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/speech"
	"github.com/fluidvision/decibel/internal/testutil"
	"github.com/fluidvision/decibel/internal/transcriber"
)

type fakeFinder struct {
	result *itunes.Result
	err    error
	terms  []string
}

func (f *fakeFinder) FindSong(ctx context.Context, term string) (*itunes.Result, error) {
	f.terms = append(f.terms, term)
	return f.result, f.err
}

func TestRootCommands(t *testing.T) {
	want := []string{
		"serve", "toggle", "cancel", "status", "version", "pause", "stop",
		"listen", "transcribe", "search", "history", "doctor", "configure",
	}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestBusCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	ln, err := bus.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			line, _ := bufio.NewReader(c).ReadString('\n')
			fmt.Fprintf(c, "STATUS got=%c\n", line[0])
			c.Close()
		}
	}()

	var out bytes.Buffer
	cmd := busCmd("status", "Get daemon status", bus.CmdStatus)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.String() != "STATUS got=s\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestBusCommandNoDaemon(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cmd := busCmd("toggle", "Toggle recording on/off", bus.CmdToggle)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "failed to toggle") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestRunSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("term"); got != "hey jude" {
			t.Errorf("term = %q", got)
		}
		fmt.Fprint(w, `{"resultCount":1,"results":[{"artistName":"The Beatles","trackName":"Hey Jude","collectionName":"1967-1970"}]}`)
	}))
	defer server.Close()

	client := itunes.NewClient(itunes.WithBaseURL(server.URL))

	t.Run("card", func(t *testing.T) {
		var out bytes.Buffer
		if err := runSearch(context.Background(), client, "hey jude", false, &out); err != nil {
			t.Fatalf("runSearch() error = %v", err)
		}
		if !strings.Contains(out.String(), "Hey Jude") || !strings.Contains(out.String(), "The Beatles") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		if err := runSearch(context.Background(), client, "hey jude", true, &out); err != nil {
			t.Fatalf("runSearch() error = %v", err)
		}
		if !strings.Contains(out.String(), `"trackName": "Hey Jude"`) {
			t.Errorf("output = %q", out.String())
		}
	})
}

func TestRunSearchFailure(t *testing.T) {
	finder := &fakeFinder{err: errors.New("offline")}
	err := runSearch(context.Background(), finder, "anything", false, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Errorf("runSearch() error = %v", err)
	}
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	printHistory(&out, nil)
	if !strings.Contains(out.String(), "No history yet") {
		t.Errorf("empty output = %q", out.String())
	}

	out.Reset()
	printHistory(&out, []history.Entry{
		{Kind: history.KindMatch, Match: &history.Match{TrackName: "Hey Jude", Artist: "The Beatles"}, CreatedAt: time.Now()},
		{Kind: history.KindTranscript, Text: "play hey jude", CreatedAt: time.Now()},
	})
	got := out.String()
	if !strings.Contains(got, "Hey Jude by The Beatles") || !strings.Contains(got, `"play hey jude"`) {
		t.Errorf("output = %q", got)
	}
}

func newSessionRecognizer(adapter *testutil.MockAdapter, source *testutil.MockSource) *speech.Recognizer {
	return speech.New(speech.Options{
		NewAdapter:   func() (transcriber.StreamingAdapter, error) { return adapter, nil },
		NewSource:    func() (recording.Source, error) { return source, nil },
		FlushOnStop:  true,
		FlushTimeout: 500 * time.Millisecond,
	})
}

func TestRunSessionSearchesFinals(t *testing.T) {
	adapter := testutil.NewMockAdapter()
	adapter.OnFinalize = func(a *testutil.MockAdapter) {
		a.Emit(transcriber.TranscriptionResult{Text: "hey jude", IsFinal: true})
	}
	source := &testutil.MockSource{}
	rec := newSessionRecognizer(adapter, source)
	finder := &fakeFinder{result: &itunes.Result{TrackName: "Hey Jude", Artist: "The Beatles"}}

	// the source ends on its own, as a replayed file does
	go func() {
		testutil.WaitForCondition(t, rec.IsRecording, time.Second)
		source.Stop()
	}()

	var out bytes.Buffer
	if err := runSession(context.Background(), rec, &out, finder, 500*time.Millisecond); err != nil {
		t.Fatalf("runSession() error = %v", err)
	}

	if len(finder.terms) != 1 || finder.terms[0] != "hey jude" {
		t.Errorf("search terms = %v", finder.terms)
	}
	if !strings.Contains(out.String(), "hey jude") || !strings.Contains(out.String(), "The Beatles") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunSessionWithoutFinals(t *testing.T) {
	adapter := testutil.NewMockAdapter()
	source := &testutil.MockSource{}
	rec := newSessionRecognizer(adapter, source)
	finder := &fakeFinder{}

	go func() {
		testutil.WaitForCondition(t, rec.IsRecording, time.Second)
		source.Stop()
	}()

	if err := runSession(context.Background(), rec, &bytes.Buffer{}, finder, 500*time.Millisecond); err != nil {
		t.Fatalf("runSession() error = %v", err)
	}
	if len(finder.terms) != 0 {
		t.Errorf("search should not run without a transcript, got %v", finder.terms)
	}
}

func TestRunSessionStartFailure(t *testing.T) {
	adapter := testutil.NewMockAdapter()
	adapter.StartErr = errors.New("no credentials")
	rec := newSessionRecognizer(adapter, &testutil.MockSource{})

	err := runSession(context.Background(), rec, &bytes.Buffer{}, nil, 0)
	if err == nil || !strings.Contains(err.Error(), "no credentials") {
		t.Errorf("runSession() error = %v", err)
	}
}

