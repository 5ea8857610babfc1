package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fluidvision/decibel/internal/bus"
	"github.com/fluidvision/decibel/internal/history"
	"github.com/fluidvision/decibel/internal/itunes"
	"github.com/fluidvision/decibel/internal/notify"
	"github.com/fluidvision/decibel/internal/player"
	"github.com/fluidvision/decibel/internal/publish"
	"github.com/fluidvision/decibel/internal/speech"
)

const lookupTimeout = 30 * time.Second

// Searcher finds the song named by a transcript.
type Searcher interface {
	FindSong(ctx context.Context, term string) (*itunes.Result, error)
}

// Player plays song previews.
type Player interface {
	Load(ctx context.Context, url string) error
	PlayFromBeginning() error
	TogglePause()
	Stop()
	State() player.PlaybackState
}

type Options struct {
	Recognizer *speech.Recognizer
	Search     Searcher
	History    *history.Store
	// Player is nil when playback is disabled.
	Player    Player
	Publisher *publish.Publisher
	Notifier  notify.Notifier
	// MaxEntries bounds the history table; 0 keeps everything.
	MaxEntries int
	Version    string
}

type Daemon struct {
	rec        *speech.Recognizer
	history    *history.Store
	player     Player
	pub        *publish.Publisher
	maxEntries int
	version    string

	mu        sync.RWMutex
	search    Searcher
	notifier  notify.Notifier
	sessionID string
	lastMatch string

	ctx     context.Context
	cancel  context.CancelFunc
	lookups sync.WaitGroup
}

func New(opts Options) *Daemon {
	if opts.Notifier == nil {
		opts.Notifier = notify.Desktop{}
	}
	if opts.Search == nil {
		opts.Search = itunes.NewClient()
	}
	if opts.History == nil {
		opts.History = history.Ephemeral()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		rec:        opts.Recognizer,
		history:    opts.History,
		player:     opts.Player,
		pub:        opts.Publisher,
		maxEntries: opts.MaxEntries,
		version:    opts.Version,
		search:     opts.Search,
		notifier:   opts.Notifier,
		ctx:        ctx,
		cancel:     cancel,
	}

	listeners := []speech.Listener{d}
	if d.pub != nil {
		listeners = append(listeners, d.pub)
	}
	d.rec.SetListener(speech.Multi(listeners...))
	return d
}

func (d *Daemon) getNotifier() notify.Notifier {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.notifier
}

func (d *Daemon) getSearch() Searcher {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.search
}

// SetNotifier and SetSearch swap collaborators after a config reload.
func (d *Daemon) SetNotifier(n notify.Notifier) {
	d.mu.Lock()
	d.notifier = n
	d.mu.Unlock()
}

func (d *Daemon) SetSearch(s Searcher) {
	d.mu.Lock()
	d.search = s
	d.mu.Unlock()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()
	defer d.shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// Shutdown stops a running daemon.
func (d *Daemon) Shutdown() { d.cancel() }

func (d *Daemon) shutdown() {
	d.cancel()
	d.rec.Cancel()
	d.lookups.Wait()
	if d.player != nil {
		d.player.Stop()
	}
	if err := d.pub.Close(); err != nil {
		log.Printf("Daemon: %v", err)
	}
	if err := d.history.Close(); err != nil {
		log.Printf("Daemon: close history: %v", err)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) <= 1 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		recording, err := d.toggle()
		if err != nil {
			fmt.Fprintf(c, "ERR start: %v\n", err)
			return
		}
		fmt.Fprintf(c, "OK recording=%t\n", recording)
	case bus.CmdCancel:
		d.rec.Cancel()
		fmt.Fprint(c, "OK cancelled\n")
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS %s\n", d.status())
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s version=%s\n", bus.ProtoVer, d.version)
	case bus.CmdPause:
		if d.player == nil {
			fmt.Fprint(c, "ERR player disabled\n")
			return
		}
		d.player.TogglePause()
		fmt.Fprintf(c, "OK player=%s\n", strings.ToLower(d.player.State().String()))
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) toggle() (bool, error) {
	if d.rec.IsRecording() {
		if err := d.rec.StopRecording(); err != nil {
			log.Printf("Daemon: stop recording: %v", err)
		}
		return false, nil
	}
	if err := d.rec.StartRecording(d.ctx); err != nil {
		go d.getNotifier().Error(fmt.Sprintf("Could not start listening: %v", err))
		return false, err
	}
	return true, nil
}

func (d *Daemon) status() string {
	playerState := "disabled"
	if d.player != nil {
		playerState = strings.ToLower(d.player.State().String())
	}
	d.mu.RLock()
	last := d.lastMatch
	d.mu.RUnlock()
	return fmt.Sprintf("state=%s player=%s last=%q", d.rec.State(), playerState, last)
}

func (d *Daemon) currentSession() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessionID
}

func (d *Daemon) SessionStarted(id string) {
	d.mu.Lock()
	d.sessionID = id
	d.mu.Unlock()
	go d.getNotifier().RecordingChanged(true)
}

func (d *Daemon) SessionEnded(id string) {
	go d.getNotifier().RecordingChanged(false)
}

func (d *Daemon) RecognitionFailed(err error) {
	log.Printf("Daemon: recognition failed: %v", err)
	go d.getNotifier().Error(fmt.Sprintf("Recognition failed: %v", err))
}

func (d *Daemon) TranscriptReceived(text string, isFinal bool) {
	if !isFinal {
		log.Printf("Daemon: partial transcript: %s", text)
		return
	}
	log.Printf("Daemon: final transcript: %s", text)

	if d.ctx.Err() != nil {
		return
	}
	d.lookups.Add(1)
	go d.lookup(d.currentSession(), text)
}

// lookup records a final transcript, searches for the song it names and
// starts the preview.
func (d *Daemon) lookup(sessionID, term string) {
	defer d.lookups.Done()

	ctx, cancel := context.WithTimeout(d.ctx, lookupTimeout)
	defer cancel()

	if err := d.history.AppendTranscript(ctx, sessionID, term); err != nil {
		log.Printf("Daemon: record transcript: %v", err)
	}

	res, err := d.getSearch().FindSong(ctx, term)
	if err != nil {
		log.Printf("Daemon: song search failed: %v", err)
		d.getNotifier().Error(fmt.Sprintf("Song search failed: %v", err))
		return
	}
	if res == nil {
		log.Printf("Daemon: no song found for %q", term)
		d.getNotifier().Error(fmt.Sprintf("No song found for %q", term))
		return
	}
	log.Printf("Daemon: matched %q to %s", term, res.Title())

	d.mu.Lock()
	d.lastMatch = res.Title()
	d.mu.Unlock()

	match := history.Match{
		Artist:     res.Artist,
		TrackName:  res.TrackName,
		AlbumName:  res.AlbumName,
		PreviewURL: res.PreviewURL,
		ArtworkURL: res.ArtworkURL,
	}
	if err := d.history.AppendMatch(ctx, sessionID, term, match); err != nil {
		log.Printf("Daemon: record match: %v", err)
	}
	if d.maxEntries > 0 {
		if err := d.history.Prune(ctx, d.maxEntries); err != nil {
			log.Printf("Daemon: prune history: %v", err)
		}
	}

	if d.pub != nil {
		d.pub.SongMatched(publish.MatchEvent{
			SessionID:  sessionID,
			Term:       term,
			Artist:     res.Artist,
			TrackName:  res.TrackName,
			AlbumName:  res.AlbumName,
			PreviewURL: res.PreviewURL,
		})
	}

	d.getNotifier().SongFound(res.TrackName, res.Artist)

	if d.player == nil || res.PreviewURL == "" {
		return
	}
	if err := d.player.Load(ctx, res.PreviewURL); err != nil {
		log.Printf("Daemon: load preview: %v", err)
		return
	}
	if err := d.player.PlayFromBeginning(); err != nil {
		log.Printf("Daemon: play preview: %v", err)
	}
}
