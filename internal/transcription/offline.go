package transcription

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/emmett/voxnote/internal/audio"
)

// offlineChunkBytes is 30ms of 16kHz mono PCM16
const offlineChunkBytes = 480 * 2

// OfflineProvider runs a local Engine. Calls are serialized because
// recognizers are stateful.
type OfflineProvider struct {
	mu       sync.Mutex
	engine   Engine
	language string
	enhancer Enhancer
	logger   zerolog.Logger
}

// OfflineOption configures an OfflineProvider
type OfflineOption func(*OfflineProvider)

// WithEnhancer sets the enhancement step used when requested by Settings
func WithEnhancer(e Enhancer) OfflineOption {
	return func(p *OfflineProvider) { p.enhancer = e }
}

// WithOfflineLogger sets the provider logger
func WithOfflineLogger(l zerolog.Logger) OfflineOption {
	return func(p *OfflineProvider) { p.logger = l }
}

// NewOfflineProvider wraps an initialized engine. language is the model's
// language tag.
func NewOfflineProvider(engine Engine, language string, opts ...OfflineOption) *OfflineProvider {
	p := &OfflineProvider{
		engine:   engine,
		language: language,
		enhancer: Passthrough{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the provider in logs and notes
func (p *OfflineProvider) Name() string { return "offline" }

// TranscribeAudio feeds PCM to the engine in small chunks and returns the
// final result
func (p *OfflineProvider) TranscribeAudio(ctx context.Context, data []byte, s Settings) Result[string] {
	if !p.IsInitialized() {
		return Fail[string](KindNotInitialized, "offline model not loaded")
	}
	if s.Language != "" && p.language != "" && !sameLanguage(s.Language, p.language) {
		return Fail[string](KindUnsupported, "offline model is %s, requested %s", p.language, s.Language)
	}

	pcm := audio.StripWAVHeader(data)
	if len(pcm) == 0 {
		return Fail[string](KindInvalidInput, "no audio")
	}
	if s.EnableAudioEnhancement {
		pcm = p.enhancer.Enhance(pcm)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < len(pcm); i += offlineChunkBytes {
		if err := ctx.Err(); err != nil {
			_ = p.engine.Reset()
			return FailWith[string](err)
		}
		end := min(i+offlineChunkBytes, len(pcm))
		if _, err := p.engine.ProcessAudio(ctx, pcm[i:end]); err != nil {
			_ = p.engine.Reset()
			if ctx.Err() != nil {
				return FailWith[string](ctx.Err())
			}
			return Fail[string](KindDecode, "%v", err)
		}
	}

	final, err := p.engine.FinalResult()
	if err != nil {
		return Fail[string](KindDecode, "%v", err)
	}

	p.logger.Debug().
		Int("bytes", len(pcm)).
		Float64("confidence", final.Confidence).
		Msg("offline transcription finished")

	return Succeed(strings.TrimSpace(final.Text))
}

// TranscribeFile transcribes a WAV or raw PCM file
func (p *OfflineProvider) TranscribeFile(ctx context.Context, path string, s Settings) Result[string] {
	pcm, _, err := readAudioFile(path, audio.DefaultConfig())
	if err != nil {
		return Fail[string](KindInvalidInput, "%v", err)
	}
	return p.TranscribeAudio(ctx, pcm, s)
}

// DetectLanguage reports the loaded model's primary language
func (p *OfflineProvider) DetectLanguage(_ context.Context, data []byte) Result[string] {
	if !p.IsInitialized() {
		return Fail[string](KindNotInitialized, "offline model not loaded")
	}
	if len(data) == 0 {
		return Fail[string](KindInvalidInput, "no audio")
	}
	return Succeed(primaryLanguage(p.language))
}

// DetectSpeakers is unsupported offline
func (p *OfflineProvider) DetectSpeakers(context.Context, []byte) Result[int] {
	return Fail[int](KindUnsupported, "speaker detection not available offline")
}

// IdentifySpeakers is unsupported offline
func (p *OfflineProvider) IdentifySpeakers(context.Context, []byte) Result[map[string]string] {
	return Fail[map[string]string](KindUnsupported, "speaker identification not available offline")
}

// GenerateSummary builds an extractive summary locally
func (p *OfflineProvider) GenerateSummary(_ context.Context, text string, tmpl *SummaryTemplate) Result[Summary] {
	if strings.TrimSpace(text) == "" {
		return Fail[Summary](KindInvalidInput, "empty transcript")
	}
	return Succeed(Summarize(text, tmpl))
}

// Cleanup closes the engine
func (p *OfflineProvider) Cleanup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine == nil {
		return nil
	}
	return p.engine.Close()
}

// IsInitialized reports whether the engine is loaded
func (p *OfflineProvider) IsInitialized() bool {
	return p.engine != nil && p.engine.IsInitialized()
}

// readAudioFile returns the PCM of a WAV or raw file with its format. Raw
// files are assumed to be in rawCfg.
func readAudioFile(path string, rawCfg audio.CaptureConfig) ([]byte, audio.CaptureConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, audio.CaptureConfig{}, err
	}
	cfg, pcm, err := audio.ParseWAV(data)
	if err == nil {
		return pcm, cfg, nil
	}
	if !errors.Is(err, audio.ErrNotWAV) {
		return nil, audio.CaptureConfig{}, err
	}
	return data, rawCfg, nil
}

func primaryLanguage(tag string) string {
	tag = strings.ToLower(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}

func sameLanguage(a, b string) bool {
	return primaryLanguage(a) == primaryLanguage(b)
}
