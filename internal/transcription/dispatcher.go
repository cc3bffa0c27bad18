package transcription

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// NetworkChecker reports connectivity. It must not block.
type NetworkChecker interface {
	IsNetworkAvailable() bool
}

// NetworkFunc adapts a func to NetworkChecker
type NetworkFunc func() bool

func (f NetworkFunc) IsNetworkAvailable() bool { return f() }

var _ Provider = (*Dispatcher)(nil)

// Dispatcher picks a provider per call: online when the network is up,
// offline otherwise. A failure is returned verbatim; the other provider is
// never retried.
type Dispatcher struct {
	online  Provider
	offline Provider
	network NetworkChecker
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher over two providers
func NewDispatcher(online, offline Provider, network NetworkChecker, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		online:  online,
		offline: offline,
		network: network,
		logger:  logger,
	}
}

// Name identifies the dispatcher in logs
func (d *Dispatcher) Name() string { return "dispatcher" }

// pick chooses by network state at call time
func (d *Dispatcher) pick() Provider {
	if d.network.IsNetworkAvailable() {
		return d.online
	}
	return d.offline
}

// dispatch runs call on the chosen provider and returns a Cancelled failure
// as soon as ctx is done, without waiting for the provider
func dispatch[T any](ctx context.Context, d *Dispatcher, op string, call func(context.Context, Provider) Result[T]) Result[T] {
	if err := ctx.Err(); err != nil {
		return Fail[T](KindCancelled, "%s: %v", op, err)
	}

	p := d.pick()
	d.logger.Debug().Str("op", op).Str("provider", p.Name()).Msg("dispatching")

	done := make(chan Result[T], 1)
	go func() {
		done <- call(ctx, p)
	}()

	select {
	case r := <-done:
		if !r.OK() {
			d.logger.Warn().
				Str("op", op).
				Str("provider", p.Name()).
				Str("kind", string(r.Failure.Kind)).
				Msg(r.Failure.Message)
		}
		return r
	case <-ctx.Done():
		return Fail[T](KindCancelled, "%s: %v", op, ctx.Err())
	}
}

// TranscribeAudio transcribes PCM or WAV bytes on the selected provider
func (d *Dispatcher) TranscribeAudio(ctx context.Context, data []byte, s Settings) Result[string] {
	return dispatch(ctx, d, "transcribe_audio", func(ctx context.Context, p Provider) Result[string] {
		return p.TranscribeAudio(ctx, data, s)
	})
}

// TranscribeFile transcribes an audio file on the selected provider
func (d *Dispatcher) TranscribeFile(ctx context.Context, path string, s Settings) Result[string] {
	return dispatch(ctx, d, "transcribe_file", func(ctx context.Context, p Provider) Result[string] {
		return p.TranscribeFile(ctx, path, s)
	})
}

// DetectLanguage reports the spoken language via the selected provider
func (d *Dispatcher) DetectLanguage(ctx context.Context, data []byte) Result[string] {
	return dispatch(ctx, d, "detect_language", func(ctx context.Context, p Provider) Result[string] {
		return p.DetectLanguage(ctx, data)
	})
}

// DetectSpeakers counts speakers via the selected provider
func (d *Dispatcher) DetectSpeakers(ctx context.Context, data []byte) Result[int] {
	return dispatch(ctx, d, "detect_speakers", func(ctx context.Context, p Provider) Result[int] {
		return p.DetectSpeakers(ctx, data)
	})
}

// IdentifySpeakers labels speakers via the selected provider
func (d *Dispatcher) IdentifySpeakers(ctx context.Context, data []byte) Result[map[string]string] {
	return dispatch(ctx, d, "identify_speakers", func(ctx context.Context, p Provider) Result[map[string]string] {
		return p.IdentifySpeakers(ctx, data)
	})
}

// GenerateSummary summarizes text via the selected provider
func (d *Dispatcher) GenerateSummary(ctx context.Context, text string, tmpl *SummaryTemplate) Result[Summary] {
	return dispatch(ctx, d, "generate_summary", func(ctx context.Context, p Provider) Result[Summary] {
		return p.GenerateSummary(ctx, text, tmpl)
	})
}

// Cleanup releases both providers regardless of network state
func (d *Dispatcher) Cleanup() error {
	return errors.Join(d.online.Cleanup(), d.offline.Cleanup())
}

// IsInitialized is true only when both providers are ready
func (d *Dispatcher) IsInitialized() bool {
	return d.online.IsInitialized() && d.offline.IsInitialized()
}

// Online reports which provider the next call would use
func (d *Dispatcher) Online() bool {
	return d.network.IsNetworkAvailable()
}
