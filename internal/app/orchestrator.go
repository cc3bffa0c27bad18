package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emmett/voxnote/internal/amplitude"
	"github.com/emmett/voxnote/internal/audio"
	"github.com/emmett/voxnote/internal/logging"
	"github.com/emmett/voxnote/internal/notify"
	"github.com/emmett/voxnote/internal/output"
	"github.com/emmett/voxnote/internal/recording"
	"github.com/emmett/voxnote/internal/transcription"
)

// Deps are the orchestrator's collaborators. Everything except Capture may
// be nil.
type Deps struct {
	Capture     audio.Capture
	Storage     Storage
	Processor   *amplitude.Processor
	Transcriber transcription.Provider
	Notes       *output.NoteSink
	Notifier    notify.Notifier
	Haptics     notify.Haptics
	Logger      zerolog.Logger
}

// Options tune recording and post-processing
type Options struct {
	Audio            audio.CaptureConfig
	PollInterval     time.Duration
	DurationInterval time.Duration
	Settings         transcription.Settings
	AutoTranscribe   bool
	Summarize        bool
	SummaryTemplate  *transcription.SummaryTemplate
}

// DefaultOptions polls every 100ms and ticks duration every second
func DefaultOptions() Options {
	return Options{
		Audio:            audio.DefaultConfig(),
		PollInterval:     100 * time.Millisecond,
		DurationInterval: time.Second,
		AutoTranscribe:   true,
	}
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithIDGenerator overrides session id generation
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithBus publishes events on an existing bus
func WithBus(b *Bus) Option {
	return func(o *Orchestrator) { o.bus = b }
}

// Status is a point-in-time view of the recorder
type Status struct {
	State      string        `json:"state"`
	Reason     string        `json:"reason,omitempty"`
	SessionID  string        `json:"session_id,omitempty"`
	OutputPath string        `json:"output_path,omitempty"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Amplitude  float64       `json:"amplitude"`
}

// Orchestrator runs recording sessions: capture into a file, feed the
// amplitude pipeline and hand finished files to the transcriber.
type Orchestrator struct {
	deps     Deps
	opts     Options
	machine  *recording.Machine
	bus      *Bus
	queue    *notify.Queue
	notifier notify.Notifier
	haptics  notify.Haptics
	logger   zerolog.Logger
	newID    func() string
	now      func() time.Time

	// opMu serializes Start, Stop, Pause, Resume, Cancel and Close
	opMu      sync.Mutex
	active    *session
	closed    bool
	sessionID atomic.Pointer[string]

	jobsCtx    context.Context
	jobsCancel context.CancelFunc
	jobs       sync.WaitGroup
}

// New creates an idle orchestrator
func New(deps Deps, opts Options, options ...Option) *Orchestrator {
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.DurationInterval <= 0 {
		opts.DurationInterval = defaults.DurationInterval
	}
	if opts.Audio.SampleRate == 0 {
		opts.Audio = defaults.Audio
	}

	if deps.Storage == nil {
		deps.Storage = DirStorage{Dir: "recordings"}
	}
	if deps.Processor == nil {
		deps.Processor = amplitude.NewProcessor(amplitude.DefaultConfig(), nil)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Haptics == nil {
		deps.Haptics = notify.Nop{}
	}

	o := &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logging.Component(deps.Logger, "orchestrator"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(o)
	}
	if o.bus == nil {
		o.bus = NewBus()
	}

	o.queue = notify.NewQueue(32, o.logger)
	o.notifier = notify.NewAsyncNotifier(deps.Notifier, o.queue)
	o.haptics = notify.NewAsyncHaptics(deps.Haptics, o.queue)
	o.jobsCtx, o.jobsCancel = context.WithCancel(context.Background())
	o.machine = recording.NewMachine(
		recording.WithClock(o.now),
		recording.WithLogger(o.logger),
		recording.WithObserver(o.onTransition),
	)
	return o
}

// Bus returns the event bus
func (o *Orchestrator) Bus() *Bus {
	return o.bus
}

// State returns the current machine state
func (o *Orchestrator) State() recording.State {
	return o.machine.Current()
}

// Status returns the current state, session and level
func (o *Orchestrator) Status() Status {
	cur := o.machine.Current()
	st := Status{
		State:      cur.Kind.String(),
		Reason:     cur.Reason,
		OutputPath: cur.OutputPath,
		Amplitude:  o.deps.Processor.Stats().Last,
	}
	if s, ok := o.machine.Session(); ok {
		st.SessionID = s.ID
		st.OutputPath = s.OutputPath
		st.StartedAt = s.StartTime
		st.Elapsed = s.Duration
	}
	return st
}

// Waveform returns the current amplitude history
func (o *Orchestrator) Waveform() []float64 {
	return o.deps.Processor.Waveform()
}

// WaveformStats summarizes the current amplitude history
func (o *Orchestrator) WaveformStats() amplitude.Stats {
	return o.deps.Processor.Stats()
}

// Snapshot loads a persisted waveform by key
func (o *Orchestrator) Snapshot(ctx context.Context, key string) ([]float64, bool, error) {
	return o.deps.Processor.Lookup(ctx, key)
}

// Start begins a session. When one is already active it is returned
// unchanged.
func (o *Orchestrator) Start(ctx context.Context) (recording.Session, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if o.closed {
		return recording.Session{}, ErrClosed
	}
	if o.machine.Current().Active() {
		s, _ := o.machine.Session()
		return s, nil
	}

	o.reapLocked()
	if o.machine.Current().Kind == recording.Error {
		if err := o.machine.Cleanup(); err != nil {
			return recording.Session{}, err
		}
	}

	id := o.newID()
	o.sessionID.Store(&id)
	path, err := o.deps.Storage.NewOutput(id, o.now())
	if err != nil {
		o.machine.Fail(err.Error())
		return recording.Session{}, fmt.Errorf("failed to allocate recording file: %w", err)
	}

	stream, err := o.deps.Capture.Open(ctx, o.opts.Audio)
	if err != nil {
		o.machine.Fail(err.Error())
		return recording.Session{}, &CaptureError{Op: "open", Err: err}
	}

	writer, err := audio.CreateWAV(path, o.opts.Audio)
	if err != nil {
		_ = stream.Close()
		o.machine.Fail(err.Error())
		return recording.Session{}, fmt.Errorf("failed to create recording file: %w", err)
	}

	if _, err := o.machine.Start(id, path); err != nil {
		_ = stream.Close()
		_ = writer.Close()
		_ = o.deps.Storage.Discard(path)
		return recording.Session{}, err
	}
	o.deps.Processor.Clear()

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     id,
		path:   path,
		stream: stream,
		writer: writer,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(sessCtx)
	g.Go(func() error { return o.captureLoop(gctx, sess) })
	g.Go(func() error { return o.pollLoop(gctx, sess) })
	g.Go(func() error { return o.durationLoop(gctx, sess) })
	go o.supervise(g, sess)
	o.active = sess

	o.logger.Info().Str("session_id", id).Str("path", path).Msg("recording started")

	s, _ := o.machine.Session()
	return s, nil
}

// Stop finishes the active session. The file is complete when Stop returns;
// transcription continues in the background when enabled.
func (o *Orchestrator) Stop() (recording.Session, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	return o.stopLocked(o.opts.AutoTranscribe)
}

func (o *Orchestrator) stopLocked(transcribe bool) (recording.Session, error) {
	sess := o.active
	if sess != nil {
		if err := sess.markStopping(); err != nil {
			<-sess.done
			o.active = nil
			return recording.Session{}, err
		}
	}
	if sess == nil {
		_, err := o.machine.Stop()
		return recording.Session{}, err
	}

	if _, err := o.machine.Stop(); err != nil {
		return recording.Session{}, err
	}

	// periodic tasks go first, then the device, then the file
	sess.cancel()
	<-sess.done
	o.active = nil

	if err := sess.teardown(); err != nil {
		o.machine.Fail(err.Error())
		return recording.Session{}, &CaptureError{Op: "close", Err: err}
	}

	key, err := o.deps.Processor.Snapshot(context.Background())
	if err != nil {
		o.logger.Warn().Err(err).Str("session_id", sess.id).Msg("waveform snapshot not persisted")
	}

	done, err := o.machine.Complete(sess.path)
	if err != nil {
		return recording.Session{}, err
	}

	o.logger.Info().
		Str("session_id", done.ID).
		Dur("duration", done.Duration).
		Int("bytes", sess.writer.BytesWritten()).
		Msg("recording finished")

	if transcribe && o.deps.Transcriber != nil {
		o.jobs.Add(1)
		go o.transcribeSession(done, key)
	}
	return done, nil
}

// Pause suspends capture. It fails without a state change if the device
// cannot pause.
func (o *Orchestrator) Pause() error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	var pauser audio.Pauser
	if o.active != nil {
		pauser, _ = o.active.stream.(audio.Pauser)
	}
	if err := o.machine.Pause(pauser != nil); err != nil {
		return err
	}
	if err := pauser.Pause(); err != nil {
		_ = o.machine.Resume()
		return fmt.Errorf("failed to pause capture: %w", err)
	}
	return nil
}

// Resume continues a paused session
func (o *Orchestrator) Resume() error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if err := o.machine.Resume(); err != nil {
		return err
	}
	if pauser, ok := o.active.stream.(audio.Pauser); ok {
		if err := pauser.Resume(); err != nil {
			_ = o.machine.Pause(true)
			return fmt.Errorf("failed to resume capture: %w", err)
		}
	}
	return nil
}

// Cancel abandons any session, deletes its file and returns to Idle
func (o *Orchestrator) Cancel() (recording.Session, bool) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if sess := o.active; sess != nil {
		_ = sess.markStopping()
		sess.cancel()
		<-sess.done
		o.active = nil

		if err := sess.teardown(); err != nil {
			o.logger.Warn().Err(err).Str("session_id", sess.id).Msg("capture teardown failed")
		}
		if err := o.deps.Storage.Discard(sess.path); err != nil {
			o.logger.Warn().Err(err).Str("session_id", sess.id).Msg("recording not removed")
		}
	}

	s, ok := o.machine.Cancel()
	o.deps.Processor.Clear()
	return s, ok
}

// Transcribe runs the transcriber on an existing audio file and saves the
// resulting note
func (o *Orchestrator) Transcribe(ctx context.Context, path string) (output.Note, error) {
	var duration time.Duration
	if cfg, pcm, err := audio.ReadWAV(path); err == nil && cfg.BytesPerSecond() > 0 {
		duration = time.Duration(len(pcm)) * time.Second / time.Duration(cfg.BytesPerSecond())
	}
	return o.buildNote(ctx, o.newID(), path, o.now(), duration, "")
}

// Close finishes any active session, cancels in-flight transcriptions and
// waits for them
func (o *Orchestrator) Close() error {
	o.opMu.Lock()
	if o.closed {
		o.opMu.Unlock()
		return nil
	}
	o.closed = true

	var err error
	if o.active != nil {
		_, err = o.stopLocked(false)
	}
	o.opMu.Unlock()

	o.jobsCancel()
	o.jobs.Wait()

	o.notifier.CancelAll()
	_ = o.queue.Close()
	o.bus.Close()
	return err
}

// reapLocked drops a session whose tasks already ended in failure
func (o *Orchestrator) reapLocked() {
	if o.active == nil {
		return
	}
	_ = o.active.markStopping()
	<-o.active.done
	o.active = nil
}

func (o *Orchestrator) currentID() string {
	if id := o.sessionID.Load(); id != nil {
		return *id
	}
	return ""
}

// onTransition runs under the machine lock; everything it calls is
// non-blocking
func (o *Orchestrator) onTransition(from, to recording.State) {
	id := o.currentID()
	o.bus.Publish(Event{
		Type:      EventStateChanged,
		SessionID: id,
		State:     to.Kind.String(),
		Previous:  from.Kind.String(),
		Error:     to.Reason,
	})

	switch to.Kind {
	case recording.Recording:
		if from.Kind == recording.Paused {
			o.haptics.Trigger(notify.PatternResume)
			return
		}
		o.notifier.ShowRecording(true)
		o.haptics.Trigger(notify.PatternStart)
	case recording.Paused:
		o.haptics.Trigger(notify.PatternPause)
	case recording.Completed:
		o.notifier.ShowRecording(false)
		o.haptics.Trigger(notify.PatternStop)
	case recording.Cancelled:
		o.notifier.CancelRecording()
		o.haptics.Trigger(notify.PatternStop)
	case recording.Error:
		o.notifier.ShowRecording(false)
		o.haptics.Trigger(notify.PatternError)
		o.bus.Publish(Event{Type: EventError, SessionID: id, Error: to.Reason})
	}
}

func (o *Orchestrator) supervise(g *errgroup.Group, sess *session) {
	defer close(sess.done)

	err := g.Wait()
	if err == nil {
		return
	}
	if !sess.fail(err) {
		o.logger.Warn().Err(err).Str("session_id", sess.id).Msg("capture failed while stopping")
		return
	}

	o.logger.Error().Err(err).Str("session_id", sess.id).Msg("recording failed")
	if terr := sess.teardown(); terr != nil {
		o.logger.Warn().Err(terr).Str("session_id", sess.id).Msg("capture teardown failed")
	}
	o.machine.Fail(err.Error())
}

func (o *Orchestrator) captureLoop(ctx context.Context, sess *session) error {
	for {
		chunk, err := sess.stream.ReadChunk(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &CaptureError{Op: "read", Err: err}
		}

		// paused audio is dropped
		if o.machine.Current().Kind != recording.Recording {
			continue
		}
		if _, err := sess.writer.Write(chunk); err != nil {
			return &CaptureError{Op: "write", Err: err}
		}
	}
}

func (o *Orchestrator) pollLoop(ctx context.Context, sess *session) error {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if o.machine.Current().Kind != recording.Recording {
			continue
		}
		peak, err := sess.stream.MaxAmplitude()
		if err != nil {
			o.logger.Debug().Err(err).Str("session_id", sess.id).Msg("amplitude poll skipped")
			continue
		}

		v := o.deps.Processor.ProcessAmplitude(audio.NormalizeAmplitude(peak))
		o.bus.Publish(Event{Type: EventAmplitude, SessionID: sess.id, Amplitude: v})
	}
}

func (o *Orchestrator) durationLoop(ctx context.Context, sess *session) error {
	ticker := time.NewTicker(o.opts.DurationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if o.machine.Current().Kind != recording.Recording {
			continue
		}
		o.bus.Publish(Event{Type: EventDuration, SessionID: sess.id, Elapsed: o.machine.Elapsed()})
	}
}

func (o *Orchestrator) transcribeSession(s recording.Session, waveformKey string) {
	defer o.jobs.Done()

	o.bus.Publish(Event{Type: EventTranscriptionStarted, SessionID: s.ID})

	note, err := o.buildNote(o.jobsCtx, s.ID, s.OutputPath, s.StartTime, s.Duration, waveformKey)
	ev := Event{Type: EventTranscriptionCompleted, SessionID: s.ID, Note: &note}
	if err != nil {
		ev.Error = err.Error()
	} else {
		o.notifier.ShowTranscriptionComplete(note.Text)
	}
	o.bus.Publish(ev)
}

func (o *Orchestrator) buildNote(ctx context.Context, id, path string, created time.Time, duration time.Duration, waveformKey string) (output.Note, error) {
	note := output.Note{
		ID:        id,
		AudioPath: path,
		CreatedAt: created,
		Duration:  duration,
		Language:  o.opts.Settings.Language,
		Waveform:  waveformKey,
	}
	if o.deps.Transcriber == nil {
		err := &transcription.Error{Kind: transcription.KindNotInitialized, Message: "no transcriber configured"}
		note.Error = err.Error()
		return note, err
	}
	note.Provider = providerName(o.deps.Transcriber)

	r := o.deps.Transcriber.TranscribeFile(ctx, path, o.opts.Settings)
	if !r.OK() {
		note.Error = r.Failure.Error()
		o.logger.Warn().
			Str("session_id", id).
			Str("kind", string(r.Failure.Kind)).
			Msg(r.Failure.Message)
	} else {
		note.Text = r.Value
		if o.opts.Summarize && strings.TrimSpace(note.Text) != "" {
			s := o.deps.Transcriber.GenerateSummary(ctx, note.Text, o.opts.SummaryTemplate)
			if s.OK() {
				note.Summary = &s.Value
			} else {
				o.logger.Warn().Str("session_id", id).Err(s.Err()).Msg("summary failed")
			}
		}
	}

	if o.deps.Notes != nil {
		if p, err := o.deps.Notes.Save(note); err != nil {
			o.logger.Warn().Err(err).Str("session_id", id).Msg("note not saved")
		} else {
			o.logger.Info().Str("session_id", id).Str("path", p).Msg("note saved")
		}
	}

	if r.Failure != nil {
		return note, r.Failure
	}
	return note, nil
}

// providerName reports which backend a dispatcher would pick right now
func providerName(p transcription.Provider) string {
	if d, ok := p.(interface{ Online() bool }); ok {
		if d.Online() {
			return "online"
		}
		return "offline"
	}
	return p.Name()
}

// session is the resources owned by one Start..Stop span
type session struct {
	id     string
	path   string
	stream audio.Stream
	writer *audio.WAVWriter
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	stopping bool
	err      error

	teardownOnce sync.Once
	teardownErr  error
}

// markStopping claims the session for an operator stop. It returns the
// fatal error if the session already failed.
func (s *session) markStopping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
	return s.err
}

// fail records a fatal error unless a stop is already underway
func (s *session) fail(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.err = err
	return true
}

// teardown closes the device before the file
func (s *session) teardown() error {
	s.teardownOnce.Do(func() {
		s.teardownErr = errors.Join(s.stream.Close(), s.writer.Close())
	})
	return s.teardownErr
}
