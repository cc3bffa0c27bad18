package transcription

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/voxnote/internal/audio"
)

func TestOnlineTranscribeWrapsPCM(t *testing.T) {
	speech := &fakeSpeech{transcript: Transcript{Text: " hi there "}}
	p := NewOnlineProvider(speech, zerolog.Nop())

	pcm := make([]byte, 320)
	r := p.TranscribeAudio(context.Background(), pcm, Settings{Language: "en-US"})

	require.True(t, r.OK())
	assert.Equal(t, "hi there", r.Value)
	assert.Equal(t, []string{"en-US"}, speech.languages)

	cfg, body, err := audio.ParseWAV(speech.got)
	require.NoError(t, err)
	assert.EqualValues(t, 16000, cfg.SampleRate)
	assert.Len(t, body, 320)
}

func TestOnlineTranscribeKeepsWAV(t *testing.T) {
	speech := &fakeSpeech{transcript: Transcript{Text: "ok"}}
	p := NewOnlineProvider(speech, zerolog.Nop())

	wav := audio.WrapPCM(make([]byte, 100), audio.DefaultConfig())
	require.True(t, p.TranscribeAudio(context.Background(), wav, Settings{}).OK())
	assert.Equal(t, wav, speech.got)
}

func TestOnlineTranscribeFileKeepsSampleRate(t *testing.T) {
	speech := &fakeSpeech{transcript: Transcript{Text: "ok"}}
	p := NewOnlineProvider(speech, zerolog.Nop())

	fileCfg := audio.DefaultConfig()
	fileCfg.SampleRate = 48000
	pcm := make([]byte, 960)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "hi-rate.wav")
	require.NoError(t, os.WriteFile(path, audio.WrapPCM(pcm, fileCfg), 0o644))

	r := p.TranscribeFile(context.Background(), path, Settings{})
	require.True(t, r.OK(), r.Err())

	cfg, body, err := audio.ParseWAV(speech.got)
	require.NoError(t, err)
	assert.EqualValues(t, 48000, cfg.SampleRate)
	assert.Equal(t, pcm, body)
}

func TestOnlineRawPCMUsesCaptureConfig(t *testing.T) {
	speech := &fakeSpeech{transcript: Transcript{Text: "ok"}}
	capCfg := audio.DefaultConfig()
	capCfg.SampleRate = 44100
	p := NewOnlineProvider(speech, zerolog.Nop()).WithCaptureConfig(capCfg)

	require.True(t, p.TranscribeAudio(context.Background(), make([]byte, 64), Settings{}).OK())
	cfg, _, err := audio.ParseWAV(speech.got)
	require.NoError(t, err)
	assert.EqualValues(t, 44100, cfg.SampleRate)

	path := filepath.Join(t.TempDir(), "raw.pcm")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))
	require.True(t, p.TranscribeFile(context.Background(), path, Settings{}).OK())
	cfg, body, err := audio.ParseWAV(speech.got)
	require.NoError(t, err)
	assert.EqualValues(t, 44100, cfg.SampleRate)
	assert.Len(t, body, 64)
}

func TestOnlineTranscribeErrorKind(t *testing.T) {
	speech := &fakeSpeech{err: &Error{Kind: KindAuth, Message: "status 401"}}
	p := NewOnlineProvider(speech, zerolog.Nop())

	r := p.TranscribeAudio(context.Background(), make([]byte, 10), Settings{})
	require.False(t, r.OK())
	assert.Equal(t, KindAuth, r.Failure.Kind)
}

func TestOnlineNotInitialized(t *testing.T) {
	p := NewOnlineProvider(nil, zerolog.Nop())
	assert.False(t, p.IsInitialized())
	assert.Equal(t, KindNotInitialized, p.TranscribeAudio(context.Background(), []byte{1, 2}, Settings{}).Failure.Kind)

	p = NewOnlineProvider(&fakeSpeech{}, zerolog.Nop())
	require.NoError(t, p.Cleanup())
	assert.False(t, p.IsInitialized())
}

func TestOnlineDetectLanguage(t *testing.T) {
	speech := &fakeSpeech{transcript: Transcript{Text: "hola", Language: "Spanish"}}
	p := NewOnlineProvider(speech, zerolog.Nop())

	r := p.DetectLanguage(context.Background(), make([]byte, 10))
	require.True(t, r.OK())
	assert.Equal(t, "es", r.Value)
	assert.Equal(t, []string{""}, speech.languages)

	speech.transcript.Language = ""
	assert.Equal(t, KindDecode, p.DetectLanguage(context.Background(), make([]byte, 10)).Failure.Kind)
}

func TestOnlineSummaryFallsThroughModels(t *testing.T) {
	claude := &fakeChat{name: "anthropic", err: &Error{Kind: KindNetwork, Message: "status 529"}}
	gpt := &fakeChat{name: "openai", reply: "```json\n{\"title\":\"Plan\",\"summary\":\"Ship Friday.\",\"key_points\":[\"ship\"]}\n```"}
	p := NewOnlineProvider(&fakeSpeech{}, zerolog.Nop(), claude, gpt)

	r := p.GenerateSummary(context.Background(), "we ship on friday", &SummaryTemplate{MaxWords: 20})
	require.True(t, r.OK(), "%v", r.Err())
	assert.Equal(t, Summary{Title: "Plan", Text: "Ship Friday.", KeyPoints: []string{"ship"}, WordCount: 4}, r.Value)
	assert.Equal(t, 1, claude.calls)
	assert.Equal(t, 1, gpt.calls)
}

func TestOnlineSummaryAllFail(t *testing.T) {
	a := &fakeChat{name: "a", err: &Error{Kind: KindNetwork, Message: "down"}}
	b := &fakeChat{name: "b", err: &Error{Kind: KindAuth, Message: "bad key"}}
	p := NewOnlineProvider(&fakeSpeech{}, zerolog.Nop(), a, b)

	r := p.GenerateSummary(context.Background(), "text", nil)
	require.False(t, r.OK())
	assert.Equal(t, KindAuth, r.Failure.Kind)
}

func TestOnlineSummaryWithoutModels(t *testing.T) {
	p := NewOnlineProvider(&fakeSpeech{}, zerolog.Nop())
	assert.Equal(t, KindNotInitialized, p.GenerateSummary(context.Background(), "text", nil).Failure.Kind)
}

func TestParseSummaryPlainText(t *testing.T) {
	s := parseSummary("Weekly sync\nWe talked about the roadmap.")
	assert.Equal(t, "Weekly sync", s.Title)
	assert.Equal(t, "Weekly sync\nWe talked about the roadmap.", s.Text)
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := buildSummaryPrompt("hello", &SummaryTemplate{Instructions: "Be brief.", MaxWords: 10})
	assert.Equal(t, "Be brief.\nKeep the summary under 10 words.\nTranscript:\nhello", prompt)
}
