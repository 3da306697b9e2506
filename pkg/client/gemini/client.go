package gemini

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

const defaultMaxTokens = 1024

type Client struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func NewClient(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{client: client, model: model, maxTokens: maxTokens}, nil
}

func (c *Client) ModelID() string { return c.model }

func (c *Client) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens:   int32(c.maxTokens),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate error")
	}
	return resp.Text(), nil
}
