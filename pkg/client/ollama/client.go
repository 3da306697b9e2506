package ollama

import (
	"context"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
)

const (
	temperature      = 0.1
	defaultMaxTokens = 512
)

// Client answers one system + user turn against a local Ollama server.
// The server address comes from OLLAMA_HOST.
type Client struct {
	client    *api.Client
	model     string
	maxTokens int
}

func NewClient(model string, maxTokens int) (*Client, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Ollama client")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{client: client, model: model, maxTokens: maxTokens}, nil
}

func (c *Client) ModelID() string { return c.model }

func (c *Client) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	stream := false
	request := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": c.maxTokens,
		},
	}

	var content strings.Builder
	err := c.client.Chat(ctx, request, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "ollama chat error")
	}
	return content.String(), nil
}
