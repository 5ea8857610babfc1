package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluidvision/decibel/internal/config"
	"github.com/fluidvision/decibel/internal/itunes"
	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/speech"
	"github.com/fluidvision/decibel/internal/tui"
)

type songFinder interface {
	FindSong(ctx context.Context, term string) (*itunes.Result, error)
}

// sessionWaiter unblocks once the recognizer reports the end of a session.
type sessionWaiter struct {
	once sync.Once
	done chan struct{}
}

func newSessionWaiter() *sessionWaiter {
	return &sessionWaiter{done: make(chan struct{})}
}

func (w *sessionWaiter) TranscriptReceived(string, bool) {}
func (w *sessionWaiter) SessionStarted(string)           {}
func (w *sessionWaiter) SessionEnded(string) {
	w.once.Do(func() { close(w.done) })
}

func listenCmd() *cobra.Command {
	var (
		language    string
		maxDuration time.Duration
		stopOnFinal bool
		noSearch    bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Transcribe the microphone in the foreground",
		Long: `Records from the microphone and prints partial and final transcripts
as they arrive. Press Ctrl+C to stop; pending results are flushed before
the song search runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applySessionFlags(cmd, cfg, language, maxDuration, stopOnFinal)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			speech.SetDefaultOptions(cfg.ToSpeechOptions())
			var finder songFinder
			if !noSearch {
				finder = itunes.NewClient(cfg.ToSearchOptions()...)
			}
			return runSession(cmd.Context(), speech.Default(), cmd.OutOrStdout(), finder, cfg.Transcription.FlushTimeout)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "recognition language, e.g. en-US")
	cmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "stop automatically after this long")
	cmd.Flags().BoolVar(&stopOnFinal, "stop-on-final", false, "stop after the first final transcript")
	cmd.Flags().BoolVar(&noSearch, "no-search", false, "only transcribe, skip the song search")
	return cmd
}

func transcribeCmd() *cobra.Command {
	var (
		language string
		realtime bool
		search   bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a 16-bit PCM WAV file through the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applySessionFlags(cmd, cfg, language, 0, false)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("audio file: %w", err)
			}

			rc := cfg.ToRecordingConfig()
			opts := cfg.ToSpeechOptions()
			opts.NewSource = func() (recording.Source, error) {
				return recording.NewFileSource(path, rc.SampleRate, rc.Channels, recording.WithRealtime(realtime)), nil
			}

			var finder songFinder
			if search {
				finder = itunes.NewClient(cfg.ToSearchOptions()...)
			}
			return runSession(cmd.Context(), speech.New(opts), cmd.OutOrStdout(), finder, cfg.Transcription.FlushTimeout)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "recognition language, e.g. en-US")
	cmd.Flags().BoolVar(&realtime, "realtime", true, "pace audio at playback speed")
	cmd.Flags().BoolVar(&search, "search", false, "look up a song for the transcript")
	return cmd
}

func applySessionFlags(cmd *cobra.Command, cfg *config.Config, language string, maxDuration time.Duration, stopOnFinal bool) {
	if cmd.Flags().Changed("language") {
		cfg.Transcription.Language = language
	}
	if cmd.Flags().Changed("max-duration") {
		cfg.Transcription.MaxDuration = maxDuration
	}
	if cmd.Flags().Changed("stop-on-final") {
		cfg.Transcription.StopOnFinal = stopOnFinal
	}
}

// runSession records one session into a transcript view and, when finder is set,
// searches for the joined final transcripts afterwards.
func runSession(ctx context.Context, rec *speech.Recognizer, w io.Writer, finder songFinder, flushTimeout time.Duration) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := tui.NewTranscriptView(w)
	waiter := newSessionWaiter()
	unset := rec.SetListener(speech.Multi(view, waiter))
	defer unset()

	// the session outlives sigCtx so that Ctrl+C can still flush
	if err := rec.StartRecording(ctx); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}

	select {
	case <-waiter.done:
	case <-sigCtx.Done():
		if err := rec.StopRecording(); err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		select {
		case <-waiter.done:
		case <-time.After(flushTimeout + time.Second):
		}
	}

	if finder == nil {
		return nil
	}
	term := strings.Join(view.Finals(), " ")
	if term == "" {
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	result, err := finder.FindSong(searchCtx, term)
	if err != nil {
		return fmt.Errorf("song search failed: %w", err)
	}
	view.SongFound(result)
	return nil
}
