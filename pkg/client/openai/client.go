package openai

import (
	"context"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkg/errors"
)

const defaultMaxTokens = 1024

// Client answers one turn through the Responses API. OPENAI_BASE_URL
// points it at a compatible endpoint.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewClient(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{client: &client, model: model, maxTokens: maxTokens}, nil
}

func (c *Client) ModelID() string { return c.model }

func (c *Client) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           shared.ChatModel(c.model),
		Instructions:    openai.String(systemPrompt),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		MaxOutputTokens: openai.Int(int64(c.maxTokens)),
	}
	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "Responses API call failed")
	}
	return resp.OutputText(), nil
}
