package transcription

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// stubProvider counts calls per method and returns canned results
type stubProvider struct {
	name        string
	text        Result[string]
	summary     Result[Summary]
	block       chan struct{}
	initialized bool
	cleanupErr  error

	calls    atomic.Int32
	cleanups atomic.Int32
}

func newStub(name, text string) *stubProvider {
	return &stubProvider{
		name:        name,
		text:        Succeed(text),
		summary:     Succeed(Summary{Title: name}),
		initialized: true,
	}
}

func (s *stubProvider) wait(ctx context.Context) {
	if s.block == nil {
		return
	}
	select {
	case <-s.block:
	case <-ctx.Done():
	}
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) TranscribeAudio(ctx context.Context, _ []byte, _ Settings) Result[string] {
	s.calls.Add(1)
	s.wait(ctx)
	return s.text
}

func (s *stubProvider) TranscribeFile(ctx context.Context, _ string, _ Settings) Result[string] {
	s.calls.Add(1)
	s.wait(ctx)
	return s.text
}

func (s *stubProvider) DetectLanguage(context.Context, []byte) Result[string] {
	s.calls.Add(1)
	return Succeed(s.name + "-lang")
}

func (s *stubProvider) DetectSpeakers(context.Context, []byte) Result[int] {
	s.calls.Add(1)
	return Fail[int](KindUnsupported, "no")
}

func (s *stubProvider) IdentifySpeakers(context.Context, []byte) Result[map[string]string] {
	s.calls.Add(1)
	return Fail[map[string]string](KindUnsupported, "no")
}

func (s *stubProvider) GenerateSummary(context.Context, string, *SummaryTemplate) Result[Summary] {
	s.calls.Add(1)
	return s.summary
}

func (s *stubProvider) Cleanup() error {
	s.cleanups.Add(1)
	return s.cleanupErr
}

func (s *stubProvider) IsInitialized() bool { return s.initialized }

// fakeEngine records the audio it receives
type fakeEngine struct {
	mu          sync.Mutex
	fed         []byte
	chunks      int
	text        string
	processErr  error
	resets      int
	closed      bool
	initialized bool
}

func (e *fakeEngine) Initialize(EngineConfig) error {
	e.initialized = true
	return nil
}

func (e *fakeEngine) ProcessAudio(_ context.Context, data []byte) (*Recognition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processErr != nil {
		return nil, e.processErr
	}
	e.fed = append(e.fed, data...)
	e.chunks++
	return &Recognition{Partial: true}, nil
}

func (e *fakeEngine) FinalResult() (*Recognition, error) {
	return &Recognition{Text: e.text, Confidence: 0.9}, nil
}

func (e *fakeEngine) Reset() error {
	e.resets++
	return nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	e.initialized = false
	return nil
}

func (e *fakeEngine) IsInitialized() bool { return e.initialized }

type fakeSpeech struct {
	transcript Transcript
	err        error
	languages  []string
	got        []byte
}

func (f *fakeSpeech) Transcribe(_ context.Context, wav []byte, language string) (Transcript, error) {
	f.languages = append(f.languages, language)
	f.got = wav
	return f.transcript, f.err
}

type fakeChat struct {
	name  string
	reply string
	err   error
	calls int
}

func (f *fakeChat) Name() string { return f.name }

func (f *fakeChat) Complete(context.Context, string, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

var errBoom = errors.New("boom")
