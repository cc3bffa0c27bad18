// Package bootstrap assembles a recorder from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/emmett/voxnote/internal/amplitude"
	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/audio"
	"github.com/emmett/voxnote/internal/config"
	"github.com/emmett/voxnote/internal/logging"
	"github.com/emmett/voxnote/internal/models"
	"github.com/emmett/voxnote/internal/notify"
	"github.com/emmett/voxnote/internal/output"
	"github.com/emmett/voxnote/internal/transcription"
)

// snapshotTTL bounds how long redis keeps waveform snapshots
const snapshotTTL = 7 * 24 * time.Hour

// Options are the parts of a runtime that are not in the config file
type Options struct {
	// NewEngine creates the offline recognizer; offline transcription is
	// unavailable when nil
	NewEngine func() transcription.Engine

	// Capture overrides the microphone
	Capture audio.Capture

	// AutoDownload fetches a missing offline model
	AutoDownload bool

	// Console receives user-facing notifications; nil disables them
	Console io.Writer

	// Tones plays audible cues on state changes
	Tones bool
}

// Runtime is a wired recorder and the resources it owns
type Runtime struct {
	Config       *config.Config
	Orchestrator *app.Orchestrator
	Transcriber  *transcription.Dispatcher
	Network      *transcription.NetworkMonitor
	Catalog      *models.Catalog

	logger  zerolog.Logger
	closers []io.Closer
}

// NewLogger builds the diagnostics logger described by cfg
func NewLogger(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	return logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    cfg.Logging.Console,
	})
}

// Build wires capture, amplitude, transcription and notes from cfg
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Runtime, error) {
	r := &Runtime{
		Config:  cfg,
		Catalog: models.NewCatalog(cfg.Transcription.Offline.ModelsDir),
		logger:  logging.Component(logger, "bootstrap"),
	}

	store, closer, err := SnapshotStore(cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		r.closers = append(r.closers, closer)
	}

	processor := amplitude.NewProcessor(amplitude.Config{
		WindowSize:      cfg.Amplitude.WindowSize,
		SmoothingFactor: cfg.Amplitude.SmoothingFactor,
		Normalize:       cfg.Amplitude.Normalize,
	}, amplitude.NewCache(cfg.Amplitude.CacheCapacity, store))

	notes, err := output.NewNoteSink(cfg.Notes.Dir, cfg.Notes.Format)
	if err != nil {
		return nil, err
	}

	r.Network = transcription.NewNetworkMonitor(cfg.Network.ProbeURL, cfg.Network.Interval, cfg.Network.Timeout, logging.Component(logger, "network"))
	r.Transcriber = transcription.NewDispatcher(
		r.onlineProvider(logger),
		r.offlineProvider(ctx, opts, logger),
		r.Network,
		logging.Component(logger, "dispatcher"),
	)

	capture := opts.Capture
	if capture == nil {
		capture = audio.NewMalgoCapture(logging.Component(logger, "capture"))
	}

	deps := app.Deps{
		Capture:     capture,
		Storage:     app.DirStorage{Dir: cfg.Storage.RecordingsDir},
		Processor:   processor,
		Transcriber: r.Transcriber,
		Notes:       notes,
		Logger:      logger,
	}
	if opts.Console != nil {
		deps.Notifier = notify.NewConsole(opts.Console)
	}
	if opts.Tones {
		deps.Haptics = notify.NewTones(audio.MalgoPlayer{}, logging.Component(logger, "tones"))
	}

	r.Orchestrator = app.New(deps, AppOptions(cfg))
	return r, nil
}

// AppOptions maps config to orchestrator options
func AppOptions(cfg *config.Config) app.Options {
	opts := app.DefaultOptions()
	opts.Audio.SampleRate = cfg.Audio.SampleRate
	opts.Audio.Channels = cfg.Audio.Channels
	opts.Audio.BitDepth = cfg.Audio.BitDepth
	opts.Audio.BufferBytes = opts.Audio.BytesPerSecond() * 2
	opts.Audio.DeviceName = cfg.Audio.Device
	opts.PollInterval = cfg.Audio.PollInterval
	opts.DurationInterval = cfg.Audio.DurationInterval
	opts.Settings = transcription.Settings{
		Language:               cfg.Transcription.Language,
		EnableSpeakerDetection: cfg.Transcription.SpeakerDetection,
		EnableAudioEnhancement: cfg.Transcription.AudioEnhancement,
	}
	opts.AutoTranscribe = cfg.Transcription.AutoTranscribe
	if n := cfg.Transcription.Online.SummaryMaxWords; n > 0 {
		opts.Summarize = true
		opts.SummaryTemplate = &transcription.SummaryTemplate{Name: "default", MaxWords: n}
	}
	return opts
}

// SnapshotStore returns the configured waveform snapshot backend. The
// closer is nil when the backend holds no resources.
func SnapshotStore(cfg *config.Config) (amplitude.SnapshotStore, io.Closer, error) {
	switch cfg.Snapshots.Backend {
	case "", "none":
		return nil, nil, nil
	case "file":
		s, err := amplitude.NewFileStore(cfg.Snapshots.Dir, cfg.Snapshots.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Snapshots.Redis.Addr,
			Password: cfg.Snapshots.Redis.Password,
			DB:       cfg.Snapshots.Redis.DB,
		})
		return amplitude.NewRedisStore(client, cfg.Snapshots.Namespace, snapshotTTL), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend: %s", cfg.Snapshots.Backend)
	}
}

func (r *Runtime) onlineProvider(logger zerolog.Logger) *transcription.OnlineProvider {
	online := r.Config.Transcription.Online

	var summarizers []transcription.ChatClient
	if online.AnthropicKey != "" {
		summarizers = append(summarizers, transcription.NewAnthropicClient(online.AnthropicKey, online.AnthropicModel))
	}

	var speech transcription.SpeechClient
	if online.OpenAIKey != "" {
		c := transcription.NewOpenAIClient(online.OpenAIKey, online.OpenAIModel, online.ChatModel)
		speech = c
		summarizers = append(summarizers, c)
	} else {
		r.logger.Warn().Msg("no OpenAI key configured, online transcription unavailable")
	}

	return transcription.NewOnlineProvider(speech, logging.Component(logger, "online"), summarizers...).
		WithCaptureConfig(AppOptions(r.Config).Audio)
}

func (r *Runtime) offlineProvider(ctx context.Context, opts Options, logger zerolog.Logger) *transcription.OfflineProvider {
	name := r.Config.Transcription.Offline.Model
	if name == "" {
		name = models.DefaultModelName
	}
	language := r.Catalog.Language(name)

	popts := []transcription.OfflineOption{
		transcription.WithOfflineLogger(logging.Component(logger, "offline")),
		transcription.WithEnhancer(transcription.PeakNormalizer{Target: 0.9}),
	}

	if opts.NewEngine == nil {
		return transcription.NewOfflineProvider(nil, language, popts...)
	}
	engine := opts.NewEngine()

	path, err := app.NewModelManager(r.Catalog, io.Discard).EnsureModel(ctx, name, opts.AutoDownload)
	if err != nil {
		r.logger.Warn().Err(err).Str("model", name).Msg("offline model unavailable")
		return transcription.NewOfflineProvider(engine, language, popts...)
	}

	cfg := transcription.DefaultEngineConfig(path, language)
	cfg.SampleRate = int(r.Config.Audio.SampleRate)
	if err := engine.Initialize(cfg); err != nil {
		r.logger.Warn().Err(err).Str("model", name).Msg("offline model failed to load")
	}
	return transcription.NewOfflineProvider(engine, language, popts...)
}

// Run keeps the network probe current until ctx is done
func (r *Runtime) Run(ctx context.Context) error {
	return r.Network.Run(ctx)
}

// Close stops the recorder and releases providers and stores
func (r *Runtime) Close() error {
	errs := []error{r.Orchestrator.Close(), r.Transcriber.Cleanup()}
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
