package client

import (
	"context"

	"github.com/pkg/errors"

	"frozenlake-rl/internal/config"
	"frozenlake-rl/pkg/client/anthropic"
	"frozenlake-rl/pkg/client/gemini"
	"frozenlake-rl/pkg/client/ollama"
	"frozenlake-rl/pkg/client/openai"
)

// Generator produces the raw reply for one system + user turn.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
	ModelID() string
}

// NewGenerator builds the language model client named by settings.
func NewGenerator(settings config.AgentSettings) (Generator, error) {
	switch settings.Backend {
	case config.BackendAnthropic, "claude":
		return orNil(anthropic.NewClient(settings.Model, settings.MaxTokens))
	case config.BackendOpenAI:
		return orNil(openai.NewClient(settings.Model, settings.MaxTokens))
	case config.BackendGemini:
		return orNil(gemini.NewClient(settings.Model, settings.MaxTokens))
	case config.BackendOllama:
		return orNil(ollama.NewClient(settings.Model, settings.MaxTokens))
	default:
		return nil, errors.Errorf("backend %q is not a language model", settings.Backend)
	}
}

// orNil keeps a failed constructor from yielding a non-nil interface around
// a nil client.
func orNil[G Generator](gen G, err error) (Generator, error) {
	if err != nil {
		return nil, err
	}
	return gen, nil
}
