package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cavaliergopher/grab/v3"
)

var ErrNotLoaded = errors.New("player: nothing loaded")

type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
	Failed
)

func (s PlaybackState) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("PlaybackState(%d)", int(s))
	}
}

type BufferingState int

const (
	BufferingUnknown BufferingState = iota
	BufferingReady
	BufferingDelayed
)

func (s BufferingState) String() string {
	switch s {
	case BufferingUnknown:
		return "Unknown"
	case BufferingReady:
		return "Ready"
	case BufferingDelayed:
		return "Delayed"
	default:
		return fmt.Sprintf("BufferingState(%d)", int(s))
	}
}

// Delegate observes a Player. Callbacks run on the goroutine that caused the
// change and never with the player's lock held. Embed NopDelegate to implement a subset.
type Delegate interface {
	PlayerReady(p *Player)
	PlaybackStateChanged(p *Player)
	BufferingStateChanged(p *Player)
	PlaybackWillStartFromBeginning(p *Player)
	PlaybackDidEnd(p *Player)
}

type NopDelegate struct{}

func (NopDelegate) PlayerReady(*Player)                    {}
func (NopDelegate) PlaybackStateChanged(*Player)           {}
func (NopDelegate) BufferingStateChanged(*Player)          {}
func (NopDelegate) PlaybackWillStartFromBeginning(*Player) {}
func (NopDelegate) PlaybackDidEnd(*Player)                 {}

type Config struct {
	Command      string
	CacheDir     string
	FadeDuration time.Duration
	Volume       int
}

func DefaultConfig() Config {
	cacheDir := os.TempDir()
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = dir
	}
	return Config{
		Command:      "mpv",
		CacheDir:     filepath.Join(cacheDir, "decibel", "previews"),
		FadeDuration: 2 * time.Second,
		Volume:       80,
	}
}

// process is the running player command.
type process interface {
	Signal(sig os.Signal) error
	Kill() error
	Wait() error
}

type execProcess struct{ cmd *exec.Cmd }

func (p execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p execProcess) Kill() error                { return p.cmd.Process.Kill() }
func (p execProcess) Wait() error                { return p.cmd.Wait() }

func startExec(name string, args []string) (process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

// Player downloads preview clips and plays them through an external command.
type Player struct {
	config Config
	grab   *grab.Client
	start  func(name string, args []string) (process, error)

	mu        sync.Mutex
	delegate  Delegate
	state     PlaybackState
	buffering BufferingState
	file      string
	proc      process
}

func New(config Config) *Player {
	if config.Command == "" {
		config.Command = "mpv"
	}
	return &Player{
		config: config,
		grab:   grab.NewClient(),
		start:  startExec,
	}
}

func (p *Player) SetDelegate(d Delegate) {
	p.mu.Lock()
	p.delegate = d
	p.mu.Unlock()
}

func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Buffering() BufferingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffering
}

// File returns the local path of the loaded clip.
func (p *Player) File() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file
}

func (p *Player) notify(fn func(Delegate)) {
	p.mu.Lock()
	d := p.delegate
	p.mu.Unlock()
	if d != nil {
		fn(d)
	}
}

func (p *Player) setState(s PlaybackState) {
	p.mu.Lock()
	changed := p.state != s
	p.state = s
	p.mu.Unlock()
	if changed {
		p.notify(func(d Delegate) { d.PlaybackStateChanged(p) })
	}
}

func (p *Player) setBuffering(s BufferingState) {
	p.mu.Lock()
	changed := p.buffering != s
	p.buffering = s
	p.mu.Unlock()
	if changed {
		p.notify(func(d Delegate) { d.BufferingStateChanged(p) })
	}
}

// Load stops any current playback and downloads the clip at url into the cache directory.
func (p *Player) Load(ctx context.Context, url string) error {
	p.Stop()
	p.setBuffering(BufferingDelayed)

	if err := os.MkdirAll(p.config.CacheDir, 0o755); err != nil {
		p.setState(Failed)
		return fmt.Errorf("create cache dir: %w", err)
	}

	req, err := grab.NewRequest(p.config.CacheDir, url)
	if err != nil {
		p.setState(Failed)
		return fmt.Errorf("create download request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	start := time.Now()
	resp := p.grab.Do(req)
	if err := resp.Err(); err != nil {
		p.setBuffering(BufferingUnknown)
		p.setState(Failed)
		return fmt.Errorf("download preview: %w", err)
	}
	log.Printf("player: downloaded %s (%d bytes) in %v", resp.Filename, resp.BytesComplete(), time.Since(start))

	p.mu.Lock()
	p.file = resp.Filename
	p.mu.Unlock()

	p.setBuffering(BufferingReady)
	p.setState(Stopped)
	p.notify(func(d Delegate) { d.PlayerReady(p) })
	return nil
}

func (p *Player) args(file string) []string {
	args := []string{"--no-video", "--really-quiet"}
	if p.config.Volume > 0 {
		args = append(args, "--volume="+strconv.Itoa(p.config.Volume))
	}
	if p.config.FadeDuration > 0 {
		secs := strconv.FormatFloat(p.config.FadeDuration.Seconds(), 'f', -1, 64)
		args = append(args, "--af=afade=t=in:d="+secs)
	}
	return append(args, file)
}

// PlayFromBeginning restarts the loaded clip.
func (p *Player) PlayFromBeginning() error {
	p.mu.Lock()
	file := p.file
	old := p.proc
	p.proc = nil
	p.mu.Unlock()

	if file == "" {
		return ErrNotLoaded
	}
	if old != nil {
		_ = old.Kill()
	}

	p.notify(func(d Delegate) { d.PlaybackWillStartFromBeginning(p) })

	proc, err := p.start(p.config.Command, p.args(file))
	if err != nil {
		p.setState(Failed)
		return fmt.Errorf("start %s: %w", p.config.Command, err)
	}

	p.mu.Lock()
	p.proc = proc
	p.mu.Unlock()
	p.setState(Playing)

	go p.wait(proc)
	return nil
}

func (p *Player) wait(proc process) {
	err := proc.Wait()

	p.mu.Lock()
	current := p.proc == proc
	if current {
		p.proc = nil
	}
	p.mu.Unlock()

	// superseded by Stop or a restart
	if !current {
		return
	}
	if err != nil {
		log.Printf("player: %s exited: %v", p.config.Command, err)
		p.setState(Failed)
		return
	}
	p.setState(Stopped)
	p.notify(func(d Delegate) { d.PlaybackDidEnd(p) })
}

// Pause suspends playback. It does nothing unless playing.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.state != Playing || p.proc == nil {
		p.mu.Unlock()
		return
	}
	proc := p.proc
	p.mu.Unlock()

	if err := proc.Signal(syscall.SIGSTOP); err != nil {
		log.Printf("player: pause: %v", err)
		return
	}
	p.setState(Paused)
}

// Resume continues paused playback. It does nothing unless paused.
func (p *Player) Resume() {
	p.mu.Lock()
	if p.state != Paused || p.proc == nil {
		p.mu.Unlock()
		return
	}
	proc := p.proc
	p.mu.Unlock()

	if err := proc.Signal(syscall.SIGCONT); err != nil {
		log.Printf("player: resume: %v", err)
		return
	}
	p.setState(Playing)
}

// TogglePause pauses when playing and resumes when paused.
func (p *Player) TogglePause() {
	switch p.State() {
	case Playing:
		p.Pause()
	case Paused:
		p.Resume()
	}
}

// Stop ends playback. It does nothing unless playing or paused.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state != Playing && p.state != Paused {
		p.mu.Unlock()
		return
	}
	proc := p.proc
	p.proc = nil
	p.mu.Unlock()

	if proc != nil {
		if err := proc.Kill(); err != nil {
			log.Printf("player: stop: %v", err)
		}
	}
	p.setState(Stopped)
}
