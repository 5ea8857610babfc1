package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"

	"github.com/fluidvision/decibel/internal/itunes"
)

// TranscriptView prints recognizer callbacks to a terminal. The pending
// partial transcript is redrawn in place; finals stay on their own lines.
type TranscriptView struct {
	mu      sync.Mutex
	out     *termenv.Output
	partial bool
	finals  []string
}

func NewTranscriptView(w io.Writer) *TranscriptView {
	return &TranscriptView{out: termenv.NewOutput(w)}
}

func (v *TranscriptView) clearPartialLocked() {
	if v.partial {
		v.out.ClearLine()
		fmt.Fprint(v.out, "\r")
		v.partial = false
	}
}

func (v *TranscriptView) TranscriptReceived(text string, isFinal bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.clearPartialLocked()
	if isFinal {
		fmt.Fprintln(v.out, StyleFinal.Render("» "+text))
		v.finals = append(v.finals, text)
		return
	}
	fmt.Fprint(v.out, StylePartial.Render(text))
	v.partial = true
}

func (v *TranscriptView) RecognitionFailed(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.clearPartialLocked()
	fmt.Fprintln(v.out, StyleError.Render("error: "+err.Error()))
}

func (v *TranscriptView) SessionStarted(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.out.HideCursor()
	fmt.Fprintln(v.out, StyleMuted.Render("Listening… press Ctrl+C to stop"))
}

func (v *TranscriptView) SessionEnded(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// an unfinished partial is kept on screen
	if v.partial {
		fmt.Fprintln(v.out)
		v.partial = false
	}
	v.out.ShowCursor()
	fmt.Fprintln(v.out, StyleMuted.Render("Stopped listening"))
}

// SongFound prints a matched song below the transcript.
func (v *TranscriptView) SongFound(r *itunes.Result) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.clearPartialLocked()
	fmt.Fprintln(v.out, RenderSong(r))
}

// Finals returns the final transcripts received so far.
func (v *TranscriptView) Finals() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.finals...)
}

// RenderSong formats a search result as a bordered card.
func RenderSong(r *itunes.Result) string {
	if r == nil {
		return StyleWarning.Render("No song found")
	}
	body := StyleLabel.Render(r.TrackName) + "\n" + r.Artist
	if r.AlbumName != "" {
		body += "\n" + StyleMuted.Render(r.AlbumName)
	}
	if r.PreviewURL != "" {
		body += "\n" + StyleMuted.Render(r.PreviewURL)
	}
	return StyleBox.Render(body)
}
