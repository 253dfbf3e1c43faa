// Package openai provides a core.Backend implementation using the OpenAI Chat
// Completions API. It adapts the engine's single prompt-in, text-out contract
// onto the SDK's message format.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// Options configure the OpenAI backend adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	SystemPrompt        string
}

// Completer wraps the OpenAI Chat Completions API behind core.Backend.
type Completer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI backend using the official client (API key from
// the environment).
func New(optFns ...func(o *Options)) *Completer {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI backend from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Completer{client: client, opts: opts}
}

// Complete implements core.Backend via a non-streaming chat completion.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if c.opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.opts.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelID implements core.Backend.
func (c *Completer) ModelID() string { return c.opts.Model }
