package daemon

import (
	"context"
	"fmt"
	"log"

	"github.com/fluidvision/decibel/internal/config"
	"github.com/fluidvision/decibel/internal/history"
	"github.com/fluidvision/decibel/internal/itunes"
	"github.com/fluidvision/decibel/internal/notify"
	"github.com/fluidvision/decibel/internal/player"
	"github.com/fluidvision/decibel/internal/publish"
	"github.com/fluidvision/decibel/internal/recording"
	"github.com/fluidvision/decibel/internal/speech"
	"github.com/fluidvision/decibel/internal/transcriber"
)

// FromConfig builds a daemon from the managed configuration. Backend and
// capture settings are read again for every session, so edits to
// config.toml apply to the next recording.
func FromConfig(ctx context.Context, mgr *config.Manager, version string) (*Daemon, error) {
	cfg := mgr.GetConfig()

	opts := cfg.ToSpeechOptions()
	opts.NewAdapter = func() (transcriber.StreamingAdapter, error) {
		return transcriber.NewStreamingAdapter(mgr.GetConfig().ToTranscriberConfig())
	}
	opts.NewSource = func() (recording.Source, error) {
		rc := mgr.GetConfig().ToRecordingConfig()
		if err := rc.Validate(); err != nil {
			return nil, err
		}
		return recording.NewRecorder(rc), nil
	}

	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	pub, err := publish.Connect(cfg.ToPublishConfig())
	if err != nil {
		// publishing is optional; keep running without it
		log.Printf("Daemon: event publishing disabled: %v", err)
		pub = nil
	}

	var p Player
	if cfg.Player.Enabled {
		pl := player.New(cfg.ToPlayerConfig())
		pl.SetDelegate(playbackLogger{})
		p = pl
	}

	d := New(Options{
		Recognizer: speech.New(opts),
		Search:     itunes.NewClient(cfg.ToSearchOptions()...),
		History:    store,
		Player:     p,
		Publisher:  pub,
		Notifier:   notify.FromType(cfg.NotificationType()),
		MaxEntries: cfg.History.MaxEntries,
		Version:    version,
	})

	mgr.OnReload(d.applyConfig)
	return d, nil
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	d.SetNotifier(notify.FromType(cfg.NotificationType()))
	d.SetSearch(itunes.NewClient(cfg.ToSearchOptions()...))
	log.Printf("Daemon: configuration applied; player, history and publish settings take effect after restart")
}

type playbackLogger struct {
	player.NopDelegate
}

func (playbackLogger) PlaybackStateChanged(p *player.Player) {
	log.Printf("Daemon: preview %s", p.State())
}

func (playbackLogger) PlaybackDidEnd(p *player.Player) {
	log.Printf("Daemon: preview finished")
}
