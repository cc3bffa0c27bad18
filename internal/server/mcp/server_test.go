package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/voxnote/internal/amplitude"
	"github.com/emmett/voxnote/internal/app"
	"github.com/emmett/voxnote/internal/audio"
	"github.com/emmett/voxnote/internal/models"
	"github.com/emmett/voxnote/internal/recording"
	"github.com/emmett/voxnote/internal/transcription"
)

type echoProvider struct{ transcription.Provider }

func (echoProvider) TranscribeAudio(_ context.Context, data []byte, s transcription.Settings) transcription.Result[string] {
	if len(data) == 0 {
		return transcription.Fail[string](transcription.KindInvalidInput, "no audio")
	}
	return transcription.Succeed(s.Language + ":" + string(data))
}

type harness struct {
	session *sdk.ClientSession
	orch    *app.Orchestrator
	capture *audio.FakeCapture
	models  string
}

func newHarness(t *testing.T, capture *audio.FakeCapture) *harness {
	t.Helper()
	ctx := context.Background()

	opts := app.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	opts.AutoTranscribe = false
	orch := app.New(app.Deps{
		Capture:   capture,
		Storage:   app.DirStorage{Dir: t.TempDir()},
		Processor: amplitude.NewProcessor(amplitude.DefaultConfig(), amplitude.NewCache(100, amplitude.NewMemoryStore())),
		Logger:    zerolog.Nop(),
	}, opts)

	modelsDir := t.TempDir()
	srv := NewServer(Config{
		ServerName:    "voxnote",
		ServerVersion: "test",
		Transcriber:   echoProvider{},
		Settings:      transcription.Settings{Language: "en"},
		Catalog: models.NewCatalog(modelsDir).WithModels([]models.Model{
			{Name: "vosk-model-a", Language: "en-US", Size: "1M"},
		}),
	}, orch, zerolog.Nop())

	clientT, serverT := sdk.NewInMemoryTransports()
	_, err := srv.Connect(ctx, serverT)
	require.NoError(t, err)

	client := sdk.NewClient(&sdk.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = orch.Close()
	})
	return &harness{session: cs, orch: orch, capture: capture, models: modelsDir}
}

func (h *harness) call(t *testing.T, name string, args map[string]any) (*sdk.CallToolResult, string) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := h.session.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func TestListTools(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})

	res, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"start_recording", "stop_recording", "pause_recording", "resume_recording",
		"cancel_recording", "recording_status", "transcribe_file", "get_waveform",
		"transcribe_audio", "list_models",
	}, names)
}

func TestRecordingTools(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{Amplitudes: []int{8000}})

	res, text := h.call(t, "start_recording", nil)
	require.False(t, res.IsError, text)
	var sess recording.Session
	require.NoError(t, json.Unmarshal([]byte(text), &sess))
	assert.NotEmpty(t, sess.ID)

	_, text = h.call(t, "recording_status", nil)
	var st app.Status
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	assert.Equal(t, "recording", st.State)
	assert.Equal(t, sess.ID, st.SessionID)

	require.Eventually(t, func() bool { return len(h.orch.Waveform()) > 0 }, 2*time.Second, 5*time.Millisecond)
	_, text = h.call(t, "get_waveform", nil)
	var wave waveformReply
	require.NoError(t, json.Unmarshal([]byte(text), &wave))
	assert.NotEmpty(t, wave.Values)
	assert.Greater(t, wave.Peak, 0.0)

	res, text = h.call(t, "stop_recording", nil)
	require.False(t, res.IsError, text)
	assert.Equal(t, recording.Completed, h.orch.State().Kind)

	res, text = h.call(t, "stop_recording", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text, "nothing to stop")
}

func TestPauseUnsupportedIsToolError(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	h.call(t, "start_recording", nil)

	res, text := h.call(t, "pause_recording", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text, "pause not supported")
	assert.Equal(t, recording.Recording, h.orch.State().Kind)
}

func TestCancelTool(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	h.call(t, "start_recording", nil)

	_, text := h.call(t, "cancel_recording", nil)
	var reply struct {
		Cancelled bool `json:"cancelled"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &reply))
	assert.True(t, reply.Cancelled)
	assert.Equal(t, recording.Idle, h.orch.State().Kind)
}

func TestCaptureFailureIsToolError(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{OpenErr: errors.New("no microphone")})

	res, text := h.call(t, "start_recording", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text, "no microphone")
}

func TestTranscribeAudioTool(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})

	res, text := h.call(t, "transcribe_audio", map[string]any{
		"audio":    base64.StdEncoding.EncodeToString([]byte("pcm")),
		"language": "de",
	})
	require.False(t, res.IsError, text)
	assert.Equal(t, "de:pcm", text)

	res, text = h.call(t, "transcribe_audio", map[string]any{"audio": "%%%"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "invalid base64")
}

func TestTranscribeFileWithoutTranscriber(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})

	res, text := h.call(t, "transcribe_file", map[string]any{"path": "/nowhere.wav"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "not_initialized")
}

func TestWaveformSnapshotMiss(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})

	res, text := h.call(t, "get_waveform", map[string]any{"key": "missing"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "missing")
}

func TestListModelsTool(t *testing.T) {
	h := newHarness(t, &audio.FakeCapture{})
	require.NoError(t, os.MkdirAll(filepath.Join(h.models, "vosk-model-a"), 0o755))

	_, text := h.call(t, "list_models", nil)
	var replies []modelReply
	require.NoError(t, json.Unmarshal([]byte(text), &replies))
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Downloaded)
}
