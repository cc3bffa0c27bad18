package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	antoption "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicClient implements ChatClient over the Claude Messages API
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a client. Extra options are passed to the SDK.
func NewAnthropicClient(apiKey, model string, opts ...antoption.RequestOption) *AnthropicClient {
	opts = append([]antoption.RequestOption{antoption.WithAPIKey(apiKey)}, opts...)
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Name includes the model
func (c *AnthropicClient) Name() string { return "anthropic:" + c.model }

// Complete sends one message with a system prompt
func (c *AnthropicClient) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", anthropicError(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &Error{Kind: KindDecode, Message: "anthropic message had no text content"}
	}
	return b.String(), nil
}

func anthropicError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Message: fmt.Sprintf("anthropic messages: %v", err)}
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: statusKind(apiErr.StatusCode), Message: fmt.Sprintf("anthropic messages: status %d", apiErr.StatusCode)}
	}
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf("anthropic messages: %v", err)}
}
