package recording

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FileSource replays a WAV file as s16 little-endian PCM frames.
type FileSource struct {
	path       string
	sampleRate int
	channels   int
	chunkSize  int
	realtime   bool

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

type FileSourceOption func(*FileSource)

// WithRealtime paces frames at the file's playback rate.
func WithRealtime(on bool) FileSourceOption {
	return func(s *FileSource) { s.realtime = on }
}

// WithChunkSize sets the frame size in bytes.
func WithChunkSize(n int) FileSourceOption {
	return func(s *FileSource) { s.chunkSize = n }
}

// NewFileSource returns a source for path. sampleRate and channels describe what the
// consumer expects; a file with a different layout is rejected at Start. Zero skips the check.
func NewFileSource(path string, sampleRate, channels int, opts ...FileSourceOption) *FileSource {
	s := &FileSource{
		path:       path,
		sampleRate: sampleRate,
		channels:   channels,
		chunkSize:  DefaultConfig().BufferSize,
		realtime:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileSource) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if s.chunkSize <= 0 {
		return nil, nil, fmt.Errorf("invalid chunk size: %d", s.chunkSize)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, nil, ErrAlreadyCapturing
	}

	pcm, rate, chans, err := decodeWAVFile(s.path)
	if err != nil {
		s.running.Store(false)
		return nil, nil, err
	}
	if s.sampleRate > 0 && rate != s.sampleRate {
		s.running.Store(false)
		return nil, nil, fmt.Errorf("%s: sample rate %d, want %d", s.path, rate, s.sampleRate)
	}
	if s.channels > 0 && chans != s.channels {
		s.running.Store(false)
		return nil, nil, fmt.Errorf("%s: %d channels, want %d", s.path, chans, s.channels)
	}

	replayCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	frameCh := make(chan AudioFrame, DefaultConfig().ChannelBufferSize)
	errCh := make(chan error, 1)

	bytesPerSecond := rate * chans * 2
	go s.replay(replayCtx, pcm, bytesPerSecond, frameCh, errCh)

	return frameCh, errCh, nil
}

func (s *FileSource) replay(ctx context.Context, pcm []byte, bytesPerSecond int, frameCh chan<- AudioFrame, errCh chan<- error) {
	defer func() {
		close(frameCh)
		close(errCh)
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
		s.running.Store(false)
	}()

	var tick <-chan time.Time
	if s.realtime && bytesPerSecond > 0 {
		interval := time.Duration(float64(s.chunkSize) / float64(bytesPerSecond) * float64(time.Second))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for off := 0; off < len(pcm); off += s.chunkSize {
		end := min(off+s.chunkSize, len(pcm))
		frame := AudioFrame{Data: pcm[off:end], Timestamp: time.Now()}

		select {
		case frameCh <- frame:
		case <-ctx.Done():
			return
		}

		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *FileSource) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// decodeWAVFile returns the file's samples as s16le PCM together with its layout.
func decodeWAVFile(path string) ([]byte, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("%s: not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	pcm, err := intBufferToS16LE(buf, int(dec.BitDepth))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, int(dec.SampleRate), int(dec.NumChans), nil
}

func intBufferToS16LE(buf *audio.IntBuffer, bitDepth int) ([]byte, error) {
	var shift int
	switch bitDepth {
	case 8:
		shift = -8
	case 16:
		shift = 0
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	var out bytes.Buffer
	out.Grow(len(buf.Data) * 2)
	sample := make([]byte, 2)
	for _, v := range buf.Data {
		switch {
		case shift < 0:
			// 8-bit WAV is unsigned
			v = (v - 128) << 8
		case shift > 0:
			v >>= shift
		}
		binary.LittleEndian.PutUint16(sample, uint16(int16(v)))
		out.Write(sample)
	}
	return out.Bytes(), nil
}
