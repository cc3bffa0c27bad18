package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	oaoption "github.com/openai/openai-go/option"
)

// OpenAIClient implements SpeechClient and ChatClient over the OpenAI API
type OpenAIClient struct {
	client      openai.Client
	speechModel string
	chatModel   string
}

// NewOpenAIClient creates a client. Extra options are passed to the SDK.
func NewOpenAIClient(apiKey, speechModel, chatModel string, opts ...oaoption.RequestOption) *OpenAIClient {
	opts = append([]oaoption.RequestOption{oaoption.WithAPIKey(apiKey)}, opts...)
	if speechModel == "" {
		speechModel = string(openai.AudioModelWhisper1)
	}
	if chatModel == "" {
		chatModel = string(openai.ChatModelGPT4oMini)
	}
	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		speechModel: speechModel,
		chatModel:   chatModel,
	}
}

// Name includes the chat model
func (c *OpenAIClient) Name() string { return "openai:" + c.chatModel }

// Transcribe posts wav to the transcription endpoint
func (c *OpenAIClient) Transcribe(ctx context.Context, wav []byte, language string) (Transcript, error) {
	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model:          openai.AudioModel(c.speechModel),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if language != "" {
		params.Language = openai.String(primaryLanguage(language))
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Transcript{}, openAIError("transcription", err)
	}

	// verbose_json carries the detected language outside the typed fields
	var extra struct {
		Language string `json:"language"`
	}
	_ = json.Unmarshal([]byte(resp.RawJSON()), &extra)

	return Transcript{Text: resp.Text, Language: extra.Language}, nil
}

// Complete runs one system+user chat completion
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", openAIError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindDecode, Message: "chat completion returned no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Message: fmt.Sprintf("openai %s: %v", op, err)}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: statusKind(apiErr.StatusCode), Message: fmt.Sprintf("openai %s: status %d", op, apiErr.StatusCode)}
	}
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf("openai %s: %v", op, err)}
}
