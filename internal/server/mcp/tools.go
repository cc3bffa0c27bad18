package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type EmptyArgs struct{}

type TranscribeFileArgs struct {
	Path string `json:"path" jsonschema:"Path of a WAV file readable by the server"`
}

type TranscribeAudioArgs struct {
	Audio    string `json:"audio" jsonschema:"Base64-encoded audio data (16kHz mono 16-bit PCM)"`
	Language string `json:"language,omitempty" jsonschema:"BCP-47 language hint such as en or en-US"`
}

type WaveformArgs struct {
	Key string `json:"key,omitempty" jsonschema:"Snapshot key from a transcription note; empty for the live waveform"`
}

type waveformReply struct {
	Key     string    `json:"key,omitempty"`
	Values  []float64 `json:"values"`
	Average float64   `json:"average"`
	Peak    float64   `json:"peak"`
}

type modelReply struct {
	Name       string `json:"name"`
	Language   string `json:"language"`
	Size       string `json:"size"`
	Downloaded bool   `json:"downloaded"`
}

// jsonResult renders v as a single text block
func jsonResult(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}

// toolError reports err to the model instead of failing the call
func (s *Server) toolError(tool string, err error) (*sdk.CallToolResult, any, error) {
	s.logger.Warn().Err(err).Str("tool", tool).Msg("tool failed")
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
	}, nil, nil
}

func (s *Server) handleStart(ctx context.Context, _ *sdk.CallToolRequest, _ EmptyArgs) (*sdk.CallToolResult, any, error) {
	sess, err := s.rec.Start(ctx)
	if err != nil {
		return s.toolError("start_recording", err)
	}
	return jsonResult(sess)
}

func (s *Server) handleStop(_ context.Context, _ *sdk.CallToolRequest, _ EmptyArgs) (*sdk.CallToolResult, any, error) {
	sess, err := s.rec.Stop()
	if err != nil {
		return s.toolError("stop_recording", err)
	}
	return jsonResult(sess)
}

func (s *Server) handlePause(_ context.Context, _ *sdk.CallToolRequest, _ EmptyArgs) (*sdk.CallToolResult, any, error) {
	if err := s.rec.Pause(); err != nil {
		return s.toolError("pause_recording", err)
	}
	return jsonResult(s.rec.Status())
}

func (s *Server) handleResume(_ context.Context, _ *sdk.CallToolRequest, _ EmptyArgs) (*sdk.CallToolResult, any, error) {
	if err := s.rec.Resume(); err != nil {
		return s.toolError("resume_recording", err)
	}
	return jsonResult(s.rec.Status())
}

func (s *Server) handleCancel(_ context.Context, _ *sdk.CallToolRequest, _ EmptyArgs) (*sdk.CallToolResult, any, error) {
	sess, ok := s.rec.Cancel()
	return jsonResult(map[string]any{"cancelled": ok, "session_id": sess.ID})
}

func (s *Server) handleStatus(_ context.Context, _ *sdk.CallToolRequest, _ EmptyArgs) (*sdk.CallToolResult, any, error) {
	return jsonResult(s.rec.Status())
}

func (s *Server) handleTranscribeFile(ctx context.Context, _ *sdk.CallToolRequest, args TranscribeFileArgs) (*sdk.CallToolResult, any, error) {
	if args.Path == "" {
		return s.toolError("transcribe_file", fmt.Errorf("path is required"))
	}
	note, err := s.rec.Transcribe(ctx, args.Path)
	if err != nil {
		return s.toolError("transcribe_file", err)
	}
	return jsonResult(note)
}

func (s *Server) handleTranscribeAudio(ctx context.Context, _ *sdk.CallToolRequest, args TranscribeAudioArgs) (*sdk.CallToolResult, any, error) {
	audioData, err := base64.StdEncoding.DecodeString(args.Audio)
	if err != nil {
		return s.toolError("transcribe_audio", fmt.Errorf("invalid base64 audio: %w", err))
	}

	settings := s.config.Settings
	if args.Language != "" {
		settings.Language = args.Language
	}

	text, err := s.config.Transcriber.TranscribeAudio(ctx, audioData, settings).Unwrap()
	if err != nil {
		return s.toolError("transcribe_audio", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}, nil, nil
}

func (s *Server) handleWaveform(ctx context.Context, _ *sdk.CallToolRequest, args WaveformArgs) (*sdk.CallToolResult, any, error) {
	if args.Key == "" {
		stats := s.rec.WaveformStats()
		return jsonResult(waveformReply{
			Values:  s.rec.Waveform(),
			Average: stats.Average,
			Peak:    stats.Peak,
		})
	}

	values, ok, err := s.rec.Snapshot(ctx, args.Key)
	if err != nil {
		return s.toolError("get_waveform", err)
	}
	if !ok {
		return s.toolError("get_waveform", fmt.Errorf("no waveform snapshot for key %s", args.Key))
	}
	reply := waveformReply{Key: args.Key, Values: values}
	for _, v := range values {
		reply.Average += v
		reply.Peak = max(reply.Peak, v)
	}
	if len(values) > 0 {
		reply.Average /= float64(len(values))
	}
	return jsonResult(reply)
}

func (s *Server) handleListModels(_ context.Context, _ *sdk.CallToolRequest, _ EmptyArgs) (*sdk.CallToolResult, any, error) {
	var replies []modelReply
	for _, m := range s.config.Catalog.Models() {
		ok, err := s.config.Catalog.Downloaded(m.Name)
		if err != nil {
			return s.toolError("list_models", err)
		}
		replies = append(replies, modelReply{Name: m.Name, Language: m.Language, Size: m.Size, Downloaded: ok})
	}
	return jsonResult(replies)
}
