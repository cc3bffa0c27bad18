package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/bootstrap"
	"github.com/emmett/voxnote/internal/config"
	"github.com/emmett/voxnote/internal/input"
	"github.com/emmett/voxnote/internal/models"
	"github.com/emmett/voxnote/internal/output"
	"github.com/emmett/voxnote/internal/recording"
	grpcserver "github.com/emmett/voxnote/internal/server/grpc"
	"github.com/emmett/voxnote/internal/transcription"
	"github.com/emmett/voxnote/internal/transcription/vosk"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file (default: ~/.voxnoterc or /etc/voxnote/config.yaml)")
	listModels    = flag.Bool("list-models", false, "List all available offline models")
	downloadModel = flag.String("download-model", "", "Download a specific offline model by name")
	modelName     = flag.String("model", "", "Offline model to use (default: vosk-model-small-en-us-0.15)")
	autoDownload  = flag.Bool("auto-download", false, "Download the offline model if it is missing")
	audioDevice   = flag.String("device", "", "Audio input device name (use -list-devices to see available devices)")
	listDevices   = flag.Bool("list-devices", false, "List all available audio input devices")
	duration      = flag.Duration("duration", 0, "Record for a fixed time instead of until Ctrl-C")
	hotkeyStr     = flag.String("hotkey", "", "Record with a global push-to-talk hotkey, e.g. ctrl+shift+space")
	hotkeyMode    = flag.String("hotkey-mode", "toggle", "Hotkey behavior: toggle or hold")
	transcribe    = flag.String("transcribe", "", "Transcribe an existing WAV file and exit")
	language      = flag.String("language", "", "Transcription language, e.g. en or de-DE")
	notesFormat   = flag.String("format", "", "Note format: json or text")
	notesDir      = flag.String("notes-dir", "", "Directory for transcript notes (default: next to the recording)")
	noTranscribe  = flag.Bool("no-transcribe", false, "Only record; do not transcribe the result")
	tones         = flag.Bool("tones", false, "Play audible cues when recording starts and stops")
	remoteAddr    = flag.String("remote", "", "Control a voxnote server at host:port; args: start|stop|pause|resume|cancel|status|watch")
	showVersion   = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Voxnote CLI v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overlays explicitly set flags on the loaded config
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Transcription.Offline.Model = *modelName
		case "device":
			cfg.Audio.Device = *audioDevice
		case "language":
			cfg.Transcription.Language = *language
		case "format":
			cfg.Notes.Format = *notesFormat
		case "notes-dir":
			cfg.Notes.Dir = *notesDir
		case "no-transcribe":
			cfg.Transcription.AutoTranscribe = !*noTranscribe
		case "hotkey":
			cfg.Hotkey = *hotkeyStr
		}
	})
}

func run(ctx context.Context, cfg *config.Config) error {
	if *remoteAddr != "" {
		return runRemote(ctx, *remoteAddr, flag.Args())
	}

	if *listDevices {
		return app.NewDeviceManager(os.Stdout).ListDevices()
	}

	mgr := app.NewModelManager(models.NewCatalog(cfg.Transcription.Offline.ModelsDir), os.Stdout)
	if *listModels {
		return mgr.ListModels()
	}
	if *downloadModel != "" {
		_, err := mgr.Download(ctx, *downloadModel)
		return err
	}

	if cfg.Audio.Device != "" {
		d, err := app.NewDeviceManager(os.Stdout).SelectDevice(cfg.Audio.Device)
		if err != nil {
			return err
		}
		cfg.Audio.Device = d.Name
	}

	logger, closer, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	rt, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{
		NewEngine:    func() transcription.Engine { return vosk.New() },
		AutoDownload: *autoDownload,
		Console:      os.Stderr,
		Tones:        *tones,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn().Err(err).Msg("shutdown incomplete")
		}
	}()

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = rt.Run(monitorCtx) }()

	console := output.NewConsoleOutput(output.ConsoleConfig{ShowTimestamp: true})

	if *transcribe != "" {
		// let the first probe land before routing
		rt.Network.Probe(ctx)
		note, err := rt.Orchestrator.Transcribe(ctx, *transcribe)
		if err != nil {
			return err
		}
		console.Note(note)
		return nil
	}

	if cfg.Hotkey != "" && *duration == 0 {
		return recordWithHotkey(ctx, rt, console, cfg.Hotkey, logger)
	}
	return recordOnce(ctx, rt, console, cfg.Transcription.AutoTranscribe)
}

// recordOnce records until ctx is cancelled or -duration elapses
func recordOnce(ctx context.Context, rt *bootstrap.Runtime, console *output.ConsoleOutput, wait bool) error {
	events, unsubscribe := rt.Orchestrator.Bus().Subscribe(256)
	defer unsubscribe()
	notes := make(chan output.Note, 1)
	go render(events, console, notes)

	recCtx := ctx
	if *duration > 0 {
		var cancel context.CancelFunc
		recCtx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sess, err := rt.Orchestrator.Start(ctx)
	if err != nil {
		return err
	}
	console.Info(fmt.Sprintf("Recording to %s (Ctrl-C to stop)", sess.OutputPath))

	<-recCtx.Done()

	done, err := rt.Orchestrator.Stop()
	if err != nil {
		return err
	}
	console.Line("Saved %s (%s)", done.OutputPath, output.FormatElapsed(done.Duration))

	if !wait {
		return nil
	}
	console.Info("Transcribing...")
	select {
	case <-notes:
	case <-time.After(5 * time.Minute):
		return errors.New("timed out waiting for transcription")
	}
	return nil
}

// recordWithHotkey records while the hotkey says so, until ctx is cancelled
func recordWithHotkey(ctx context.Context, rt *bootstrap.Runtime, console *output.ConsoleOutput, binding string, logger zerolog.Logger) error {
	mode, err := input.ParseMode(*hotkeyMode)
	if err != nil {
		return err
	}

	events, unsubscribe := rt.Orchestrator.Bus().Subscribe(256)
	defer unsubscribe()
	go render(events, console, nil)

	var hk *input.HotkeyManager
	hk, err = input.NewHotkeyManager(binding, mode, func(a input.Action) {
		switch a {
		case input.ActionStart:
			if _, err := rt.Orchestrator.Start(ctx); err != nil {
				console.Error(err.Error())
				hk.Controller().Reset()
			}
		case input.ActionStop:
			if _, err := rt.Orchestrator.Stop(); err != nil && !errors.Is(err, recording.ErrNothingToStop) {
				console.Error(err.Error())
			}
		}
	}, logger)
	if err != nil {
		return err
	}

	if err := hk.Start(ctx); err != nil {
		return err
	}
	defer hk.Stop()

	console.Info(fmt.Sprintf("Press %s to record (%s mode), Ctrl-C to quit", hk.Binding(), mode))
	<-ctx.Done()
	return nil
}

// render draws the level meter and prints finished notes
func render(events <-chan app.Event, console *output.ConsoleOutput, notes chan<- output.Note) {
	var elapsed time.Duration
	paused := false
	for e := range events {
		switch e.Type {
		case app.EventDuration:
			elapsed = e.Elapsed
		case app.EventAmplitude:
			console.Level(e.Amplitude, elapsed, paused)
		case app.EventStateChanged:
			paused = e.State == recording.Paused.String()
			if e.State == recording.Recording.String() && e.Previous != recording.Paused.String() {
				elapsed = 0
			}
		case app.EventError:
			console.Error(e.Error)
		case app.EventTranscriptionCompleted:
			if e.Note == nil {
				continue
			}
			if e.Error != "" {
				console.Error("transcription failed: " + e.Error)
			} else {
				console.Note(*e.Note)
			}
			if notes != nil {
				select {
				case notes <- *e.Note:
				default:
				}
			}
		}
	}
}

func runRemote(ctx context.Context, addr string, args []string) error {
	if len(args) == 0 {
		return errors.New("remote command required: start|stop|pause|resume|cancel|status|watch")
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()
	client := grpcserver.NewClient(conn)

	var reply any
	switch args[0] {
	case "start":
		reply, err = client.Start(ctx)
	case "stop":
		reply, err = client.Stop(ctx)
	case "pause":
		err = client.Pause(ctx)
	case "resume":
		err = client.Resume(ctx)
	case "cancel":
		reply, err = client.Cancel(ctx)
	case "status":
		reply, err = client.Status(ctx)
	case "watch":
		enc := json.NewEncoder(os.Stdout)
		err = client.WatchEvents(ctx, func(e app.Event) error { return enc.Encode(e) })
		if ctx.Err() != nil {
			return nil
		}
	default:
		return fmt.Errorf("unknown remote command: %s", args[0])
	}
	if err != nil {
		return err
	}
	if reply != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	return nil
}
