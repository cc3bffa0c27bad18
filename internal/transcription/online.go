package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/emmett/voxnote/internal/audio"
)

// Transcript is a speech API response
type Transcript struct {
	Text     string
	Language string
}

// SpeechClient is a hosted speech-to-text API
type SpeechClient interface {
	Transcribe(ctx context.Context, wav []byte, language string) (Transcript, error)
}

// ChatClient is a hosted text model used for summaries
type ChatClient interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// OnlineProvider sends audio to a hosted speech API and summaries to one or
// more chat models, tried in order
type OnlineProvider struct {
	speech      SpeechClient
	summarizers []ChatClient
	sampleCfg   audio.CaptureConfig
	logger      zerolog.Logger
	closed      atomic.Bool
}

// NewOnlineProvider creates a provider. summarizers are tried in order
// until one succeeds.
func NewOnlineProvider(speech SpeechClient, logger zerolog.Logger, summarizers ...ChatClient) *OnlineProvider {
	return &OnlineProvider{
		speech:      speech,
		summarizers: summarizers,
		sampleCfg:   audio.DefaultConfig(),
		logger:      logger,
	}
}

// WithCaptureConfig sets the format assumed for raw PCM passed to
// TranscribeAudio
func (p *OnlineProvider) WithCaptureConfig(cfg audio.CaptureConfig) *OnlineProvider {
	p.sampleCfg = cfg
	return p
}

// Name identifies the provider in logs and notes
func (p *OnlineProvider) Name() string { return "online" }

// TranscribeAudio sends data to the speech API. Raw PCM is wrapped in a WAV
// header first.
func (p *OnlineProvider) TranscribeAudio(ctx context.Context, data []byte, s Settings) Result[string] {
	if !p.IsInitialized() {
		return Fail[string](KindNotInitialized, "no speech API configured")
	}
	if len(audio.StripWAVHeader(data)) == 0 {
		return Fail[string](KindInvalidInput, "no audio")
	}

	tr, err := p.speech.Transcribe(ctx, p.asWAV(data), s.Language)
	if err != nil {
		return FailWith[string](err)
	}
	return Succeed(strings.TrimSpace(tr.Text))
}

// TranscribeFile sends a WAV or raw PCM file, keeping the WAV's own format
func (p *OnlineProvider) TranscribeFile(ctx context.Context, path string, s Settings) Result[string] {
	pcm, cfg, err := readAudioFile(path, p.sampleCfg)
	if err != nil {
		return Fail[string](KindInvalidInput, "%v", err)
	}
	return p.TranscribeAudio(ctx, audio.WrapPCM(pcm, cfg), s)
}

// DetectLanguage transcribes without a language hint and reports what the
// API detected
func (p *OnlineProvider) DetectLanguage(ctx context.Context, data []byte) Result[string] {
	if !p.IsInitialized() {
		return Fail[string](KindNotInitialized, "no speech API configured")
	}
	if len(audio.StripWAVHeader(data)) == 0 {
		return Fail[string](KindInvalidInput, "no audio")
	}

	tr, err := p.speech.Transcribe(ctx, p.asWAV(data), "")
	if err != nil {
		return FailWith[string](err)
	}
	if tr.Language == "" {
		return Fail[string](KindDecode, "language not reported")
	}
	return Succeed(languageCode(tr.Language))
}

// DetectSpeakers is unsupported by the speech API
func (p *OnlineProvider) DetectSpeakers(context.Context, []byte) Result[int] {
	return Fail[int](KindUnsupported, "speaker detection not available from the speech API")
}

// IdentifySpeakers is unsupported by the speech API
func (p *OnlineProvider) IdentifySpeakers(context.Context, []byte) Result[map[string]string] {
	return Fail[map[string]string](KindUnsupported, "speaker identification not available from the speech API")
}

const summarySystemPrompt = `You summarize voice-note transcripts. Reply with JSON only:
{"title": string, "summary": string, "key_points": [string]}`

// GenerateSummary tries each chat model in order and returns the first
// success, or the last failure
func (p *OnlineProvider) GenerateSummary(ctx context.Context, text string, tmpl *SummaryTemplate) Result[Summary] {
	if strings.TrimSpace(text) == "" {
		return Fail[Summary](KindInvalidInput, "empty transcript")
	}
	if p.closed.Load() || len(p.summarizers) == 0 {
		return Fail[Summary](KindNotInitialized, "no chat model configured")
	}

	user := buildSummaryPrompt(text, tmpl)

	var lastErr error
	for _, c := range p.summarizers {
		reply, err := c.Complete(ctx, summarySystemPrompt, user)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return FailWith[Summary](err)
			}
			p.logger.Warn().Err(err).Str("model", c.Name()).Msg("summary failed, trying next model")
			lastErr = err
			continue
		}

		summary := parseSummary(reply)
		summary.WordCount = len(strings.Fields(text))
		return Succeed(summary)
	}
	return FailWith[Summary](lastErr)
}

// Cleanup marks the provider closed; later calls fail as not initialized
func (p *OnlineProvider) Cleanup() error {
	p.closed.Store(true)
	return nil
}

// IsInitialized reports whether a speech client is configured and open
func (p *OnlineProvider) IsInitialized() bool {
	return p.speech != nil && !p.closed.Load()
}

func (p *OnlineProvider) asWAV(data []byte) []byte {
	if _, _, err := audio.ParseWAV(data); err == nil {
		return data
	}
	return audio.WrapPCM(data, p.sampleCfg)
}

func buildSummaryPrompt(text string, tmpl *SummaryTemplate) string {
	var b strings.Builder
	if tmpl != nil {
		if tmpl.Instructions != "" {
			b.WriteString(tmpl.Instructions)
			b.WriteString("\n")
		}
		if tmpl.MaxWords > 0 {
			fmt.Fprintf(&b, "Keep the summary under %d words.\n", tmpl.MaxWords)
		}
	}
	b.WriteString("Transcript:\n")
	b.WriteString(text)
	return b.String()
}

// parseSummary accepts the JSON reply, optionally fenced, and falls back to
// treating the reply as plain text
func parseSummary(reply string) Summary {
	body := strings.TrimSpace(reply)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var parsed struct {
		Title     string   `json:"title"`
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"key_points"`
	}
	if err := json.Unmarshal(bytes.TrimSpace([]byte(body)), &parsed); err == nil && parsed.Summary != "" {
		return Summary{Title: parsed.Title, Text: parsed.Summary, KeyPoints: parsed.KeyPoints}
	}

	text := strings.TrimSpace(reply)
	title, _, _ := strings.Cut(text, "\n")
	return Summary{Title: truncateWords(title, titleWords), Text: text}
}

var languageNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"chinese":    "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"hindi":      "hi",
	"arabic":     "ar",
}

// languageCode maps the API's language names to ISO-639-1 codes
func languageCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageNames[lang]; ok {
		return code
	}
	return primaryLanguage(lang)
}
