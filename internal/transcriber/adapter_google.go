package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxGoogleChunk is the largest audio payload accepted per streaming request.
const maxGoogleChunk = 15 * 1024

// SpeechClient is the subset of *speech.Client the adapter uses.
type SpeechClient interface {
	StreamingRecognize(ctx context.Context, opts ...gax.CallOption) (speechpb.Speech_StreamingRecognizeClient, error)
	Close() error
}

// GoogleAdapter streams audio to Google Cloud Speech-to-Text v2.
type GoogleAdapter struct {
	config     GoogleConfig
	model      string
	language   string
	keywords   []string
	sampleRate int
	channels   int

	dial func(ctx context.Context) (SpeechClient, error)

	mu      sync.Mutex // guards client, stream, started and Send calls
	client  SpeechClient
	stream  speechpb.Speech_StreamingRecognizeClient
	started bool
	closing bool

	resultsCh chan TranscriptionResult
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	maxRetries  int
	retryDelays []time.Duration

	finalized chan struct{}
}

func NewGoogleAdapter(config GoogleConfig, model, lang string, keywords []string, sampleRate, channels int) *GoogleAdapter {
	if config.Location == "" {
		config.Location = "global"
	}
	if config.Recognizer == "" {
		config.Recognizer = "_"
	}
	a := &GoogleAdapter{
		config:      config,
		model:       model,
		language:    lang,
		keywords:    keywords,
		sampleRate:  sampleRate,
		channels:    channels,
		resultsCh:   make(chan TranscriptionResult, 100),
		maxRetries:  3,
		retryDelays: defaultRetryDelays,
		finalized:   make(chan struct{}),
	}
	a.dial = a.dialSpeech
	return a
}

func (a *GoogleAdapter) dialSpeech(ctx context.Context) (SpeechClient, error) {
	var opts []option.ClientOption
	if endpoint := a.endpoint(); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if a.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.config.CredentialsFile))
	}
	return speech.NewClient(ctx, opts...)
}

// endpoint returns the gRPC endpoint. Regional recognizers must use the matching regional host.
func (a *GoogleAdapter) endpoint() string {
	if a.config.Endpoint != "" {
		return a.config.Endpoint
	}
	if a.config.Location != "" && a.config.Location != "global" {
		return fmt.Sprintf("%s-speech.googleapis.com:443", a.config.Location)
	}
	return ""
}

func (a *GoogleAdapter) recognizerPath() string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/%s",
		a.config.ProjectID, a.config.Location, a.config.Recognizer)
}

func (a *GoogleAdapter) streamingConfig() *speechpb.StreamingRecognizeRequest {
	features := &speechpb.RecognitionFeatures{
		EnableAutomaticPunctuation: true,
	}

	recognition := &speechpb.RecognitionConfig{
		Model:         a.model,
		LanguageCodes: []string{normalizeGoogleLanguage(a.language)},
		Features:      features,
		DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
			ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
				Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
				SampleRateHertz:   int32(a.sampleRate),
				AudioChannelCount: int32(a.channels),
			},
		},
	}

	if len(a.keywords) > 0 {
		phrases := make([]*speechpb.PhraseSet_Phrase, 0, len(a.keywords))
		for _, kw := range a.keywords {
			phrases = append(phrases, &speechpb.PhraseSet_Phrase{Value: kw, Boost: 10})
		}
		recognition.Adaptation = &speechpb.SpeechAdaptation{
			PhraseSets: []*speechpb.SpeechAdaptation_AdaptationPhraseSet{{
				Value: &speechpb.SpeechAdaptation_AdaptationPhraseSet_InlinePhraseSet{
					InlinePhraseSet: &speechpb.PhraseSet{Phrases: phrases},
				},
			}},
		}
	}

	return &speechpb.StreamingRecognizeRequest{
		Recognizer: a.recognizerPath(),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: recognition,
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
					InterimResults: true,
				},
			},
		},
	}
}

func (a *GoogleAdapter) Start(ctx context.Context, lang string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}
	if lang != "" {
		a.language = lang
	}

	a.ctx, a.cancel = context.WithCancel(ctx)

	client, err := a.dial(a.ctx)
	if err != nil {
		a.cancel()
		return NewFatalTranscriptionError(fmt.Errorf("google speech client: %w", err))
	}
	a.client = client

	if err := a.openStreamLocked(); err != nil {
		client.Close()
		a.cancel()
		return NewFatalTranscriptionError(err)
	}
	a.started = true

	a.wg.Add(1)
	go a.recvLoop()

	log.Printf("google: streaming to %s, model=%s, language=%s", a.recognizerPath(), a.model, normalizeGoogleLanguage(a.language))
	return nil
}

// openStreamLocked opens a stream and sends the config request. Must be called with mu held.
func (a *GoogleAdapter) openStreamLocked() error {
	stream, err := a.client.StreamingRecognize(a.ctx)
	if err != nil {
		return fmt.Errorf("open streaming recognize: %w", err)
	}
	if err := stream.Send(a.streamingConfig()); err != nil {
		return fmt.Errorf("send streaming config: %w", err)
	}
	a.stream = stream
	return nil
}

// retryable reports whether a stream error can be recovered by reopening.
// Google ends streams at its duration limit with OutOfRange.
func retryable(err error) bool {
	switch status.Code(err) {
	case codes.OutOfRange, codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}

func (a *GoogleAdapter) reopen() bool {
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := a.retryDelays[min(attempt-1, len(a.retryDelays)-1)]
			select {
			case <-a.ctx.Done():
				return false
			case <-time.After(delay):
			}
		}

		a.mu.Lock()
		if a.closing {
			a.mu.Unlock()
			return false
		}
		err := a.openStreamLocked()
		a.mu.Unlock()
		if err == nil {
			log.Printf("google: stream reopened")
			return true
		}
		log.Printf("google: reopen attempt %d/%d failed: %v", attempt+1, a.maxRetries, err)
	}
	return false
}

func (a *GoogleAdapter) emit(r TranscriptionResult) {
	select {
	case a.resultsCh <- r:
	case <-a.ctx.Done():
	}
}

func (a *GoogleAdapter) recvLoop() {
	defer a.wg.Done()
	defer close(a.resultsCh)
	defer close(a.finalized)

	for {
		a.mu.Lock()
		stream := a.stream
		a.mu.Unlock()

		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if a.ctx.Err() != nil {
				return
			}
			a.mu.Lock()
			closing := a.closing
			a.mu.Unlock()
			if !closing && retryable(err) {
				log.Printf("google: stream ended: %v, reopening", err)
				if a.reopen() {
					continue
				}
			}
			a.emit(TranscriptionResult{Error: NewFatalTranscriptionError(fmt.Errorf("google: recv: %w", err))})
			return
		}

		a.handleResponse(resp)
	}
}

func (a *GoogleAdapter) handleResponse(resp *speechpb.StreamingRecognizeResponse) {
	switch resp.GetSpeechEventType() {
	case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_BEGIN:
		log.Printf("google: speech activity begin")
	case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_END:
		log.Printf("google: speech activity end")
	}

	// interim responses split the hypothesis into a stable prefix and an unstable tail
	var partial []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text == "" {
			continue
		}
		if result.GetIsFinal() {
			a.emit(TranscriptionResult{Text: text, IsFinal: true})
			continue
		}
		partial = append(partial, text)
	}
	if len(partial) > 0 {
		a.emit(TranscriptionResult{Text: strings.Join(partial, " ")})
	}
}

func (a *GoogleAdapter) SendChunk(audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return ErrNotStarted
	}
	if a.closing {
		return fmt.Errorf("stream closing")
	}
	if err := a.ctx.Err(); err != nil {
		return err
	}

	for len(audio) > 0 {
		n := min(len(audio), maxGoogleChunk)
		req := &speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: audio[:n]},
		}
		if err := a.stream.Send(req); err != nil {
			// the real cause surfaces from Recv
			return fmt.Errorf("google: send audio: %w", err)
		}
		audio = audio[n:]
	}
	return nil
}

func (a *GoogleAdapter) Results() <-chan TranscriptionResult {
	return a.resultsCh
}

// Finalize half-closes the stream; Google then flushes final results and ends with EOF.
func (a *GoogleAdapter) Finalize(ctx context.Context) error {
	a.mu.Lock()
	if !a.started || a.closing {
		a.mu.Unlock()
		return nil
	}
	a.closing = true
	err := a.stream.CloseSend()
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("google: close send: %w", err)
	}

	select {
	case <-a.finalized:
		return nil
	case <-ctx.Done():
		log.Printf("google: finalize timeout")
		return ctx.Err()
	}
}

func (a *GoogleAdapter) Close() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = false
	a.closing = true
	a.cancel()
	client := a.client
	a.mu.Unlock()

	a.wg.Wait()

	var err error
	if client != nil {
		err = client.Close()
	}
	log.Printf("google: closed")
	return err
}
