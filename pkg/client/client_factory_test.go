package client

import (
	"testing"

	"frozenlake-rl/internal/config"
)

func TestNewGeneratorRejectsLocalBackends(t *testing.T) {
	for _, backend := range []string{config.BackendMock, config.BackendQGreedy, "unknown"} {
		if _, err := NewGenerator(config.AgentSettings{Backend: backend}); err == nil {
			t.Fatalf("expected an error for backend %q", backend)
		}
	}
}

func TestNewGeneratorNeedsAPIKey(t *testing.T) {
	cases := map[string]string{
		config.BackendOpenAI:    "OPENAI_API_KEY",
		config.BackendAnthropic: "ANTHROPIC_API_KEY",
		config.BackendGemini:    "GEMINI_API_KEY",
	}
	for backend, env := range cases {
		t.Setenv(env, "")
		if _, err := NewGenerator(config.AgentSettings{Backend: backend, Model: config.DefaultModelFor(backend)}); err == nil {
			t.Fatalf("expected %s to require %s", backend, env)
		}
	}
}

func TestNewGeneratorOllama(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://127.0.0.1:11434")
	gen, err := NewGenerator(config.AgentSettings{Backend: config.BackendOllama, Model: "llama3.2:latest"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.ModelID() != "llama3.2:latest" {
		t.Fatalf("expected model id, got %q", gen.ModelID())
	}
}
