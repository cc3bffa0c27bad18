package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/emmett/voxnote/internal/amplitude"
	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/logging"
	"github.com/emmett/voxnote/internal/models"
	"github.com/emmett/voxnote/internal/output"
	"github.com/emmett/voxnote/internal/recording"
	"github.com/emmett/voxnote/internal/transcription"
)

// Recorder is the orchestrator surface exposed as tools
type Recorder interface {
	Start(ctx context.Context) (recording.Session, error)
	Stop() (recording.Session, error)
	Pause() error
	Resume() error
	Cancel() (recording.Session, bool)
	Status() app.Status
	Transcribe(ctx context.Context, path string) (output.Note, error)
	Waveform() []float64
	WaveformStats() amplitude.Stats
	Snapshot(ctx context.Context, key string) ([]float64, bool, error)
}

type Config struct {
	ServerName    string
	ServerVersion string

	// Transcriber serves transcribe_audio; the tool is omitted when nil
	Transcriber transcription.Provider
	Settings    transcription.Settings

	// Catalog serves list_models; the tool is omitted when nil
	Catalog *models.Catalog
}

type Server struct {
	config    Config
	rec       Recorder
	mcpServer *sdk.Server
	logger    zerolog.Logger
}

func NewServer(cfg Config, rec Recorder, logger zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		rec:    rec,
		logger: logging.Component(logger, "mcp"),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves a single session over t
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "start_recording",
		Description: "Start recording from the microphone. Returns the active session if one is already running.",
	}, s.handleStart)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop_recording",
		Description: "Stop the active recording and finalize the audio file. Transcription runs in the background.",
	}, s.handleStop)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "pause_recording",
		Description: "Pause the active recording",
	}, s.handlePause)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "resume_recording",
		Description: "Resume a paused recording",
	}, s.handleResume)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "cancel_recording",
		Description: "Abandon the active recording and delete its audio file",
	}, s.handleCancel)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "recording_status",
		Description: "Report recorder state, session, elapsed time and the latest input level",
	}, s.handleStatus)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "transcribe_file",
		Description: "Transcribe a WAV file on the server and save a note next to it",
	}, s.handleTranscribeFile)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_waveform",
		Description: "Return the live amplitude history, or a persisted snapshot when a key is given",
	}, s.handleWaveform)

	if s.config.Transcriber != nil {
		sdk.AddTool(s.mcpServer, &sdk.Tool{
			Name:        "transcribe_audio",
			Description: "Transcribe base64-encoded audio (16kHz mono 16-bit PCM, optionally WAV)",
		}, s.handleTranscribeAudio)
	}

	if s.config.Catalog != nil {
		sdk.AddTool(s.mcpServer, &sdk.Tool{
			Name:        "list_models",
			Description: "List offline speech models and whether they are downloaded",
		}, s.handleListModels)
	}
}
