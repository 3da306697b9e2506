package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	BackendMock      = "mock"
	BackendQGreedy   = "qgreedy"
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendGemini    = "gemini"
)

const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

const (
	RubricDefault = "default"
	RubricCausal  = "causal"
)

// Settings is the whole run configuration, loaded from YAML.
type Settings struct {
	Environment EnvironmentSettings `yaml:"environment"`
	Memory      MemorySettings      `yaml:"memory"`
	Agent       AgentSettings       `yaml:"agent"`
	Training    TrainingSettings    `yaml:"training"`
	Rubric      RubricSettings      `yaml:"rubric"`
	LogLevel    string              `yaml:"log_level"`
	LogFile     string              `yaml:"log_file,omitempty"`
}

type EnvironmentSettings struct {
	Map    []string `yaml:"map"`
	Causal bool     `yaml:"causal"` // keyword parser and causal feedback
}

type MemorySettings struct {
	Backend    string `yaml:"backend"` // "file", "memory" or "sqlite"
	TopKPath   string `yaml:"top_k_path"`
	QTablePath string `yaml:"q_table_path"`
	SQLitePath string `yaml:"sqlite_path"`
	TopK       int    `yaml:"top_k"`
}

type AgentSettings struct {
	Backend      string  `yaml:"backend"`
	Model        string  `yaml:"model,omitempty"`
	MaxTokens    int     `yaml:"max_tokens,omitempty"` // 0 = backend default
	Policy       string  `yaml:"policy,omitempty"`     // mock only: "random" or "fixed"
	Epsilon      float64 `yaml:"epsilon"`
	EpsilonMin   float64 `yaml:"epsilon_min"`
	EpsilonDecay float64 `yaml:"epsilon_decay"`
	Seed         int64   `yaml:"seed"`
	FewShot      int     `yaml:"few_shot"` // 0 disables the few-shot wrapper
}

type TrainingSettings struct {
	Episodes            int  `yaml:"episodes"`
	MaxSteps            int  `yaml:"max_steps"`
	EvolveEvery         int  `yaml:"evolve_every"`
	StepDelayMs         int  `yaml:"step_delay_ms"`
	UseQTable           bool `yaml:"use_q_table"`
	UseTrajectoryMemory bool `yaml:"use_trajectory_memory"`
}

type RubricSettings struct {
	Preset  string             `yaml:"preset"`
	Weights map[string]float64 `yaml:"weights,omitempty"`
}

func DefaultSettings() *Settings {
	return &Settings{
		Environment: EnvironmentSettings{
			Map: []string{"SFFF", "FHFF", "FFFH", "HFFG"},
		},
		Memory: MemorySettings{
			Backend:    StoreFile,
			TopKPath:   filepath.Join("memories", "top_k_trajectories.json"),
			QTablePath: filepath.Join("memories", "q_table.json"),
			SQLitePath: filepath.Join("memories", "frozenlake.db"),
			TopK:       5,
		},
		Agent: AgentSettings{
			Backend:      BackendMock,
			Policy:       "random",
			Epsilon:      0.1,
			EpsilonMin:   0.01,
			EpsilonDecay: 0.99,
			Seed:         1,
		},
		Training: TrainingSettings{
			Episodes:            10,
			MaxSteps:            20,
			EvolveEvery:         3,
			UseQTable:           true,
			UseTrajectoryMemory: true,
		},
		Rubric: RubricSettings{
			Preset: RubricDefault,
		},
		LogLevel: "info",
	}
}

// DefaultModelFor names the model used when a backend is chosen without one.
func DefaultModelFor(backend string) string {
	switch backend {
	case BackendOllama:
		return "llama3.2:latest"
	case BackendOpenAI:
		return "gpt-5-mini"
	case BackendAnthropic:
		return "claude-sonnet-4-5-20250929"
	case BackendGemini:
		return "gemini-2.5-flash-lite"
	default:
		return ""
	}
}

// LoadSettings reads path over the defaults. An empty path returns the
// defaults untouched.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read settings %s", path)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, errors.Wrapf(err, "parse settings %s", path)
	}
	applyDefaults(settings)
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrapf(err, "settings %s", path)
	}
	return settings, nil
}

// SaveSettings writes s as YAML, creating parent directories.
func SaveSettings(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create settings directory")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write settings")
}

// applyDefaults fills fields a file explicitly blanked.
func applyDefaults(s *Settings) {
	defaults := DefaultSettings()
	if len(s.Environment.Map) == 0 {
		s.Environment.Map = defaults.Environment.Map
	}
	s.Memory.Backend = strings.ToLower(s.Memory.Backend)
	if s.Memory.Backend == "" {
		s.Memory.Backend = defaults.Memory.Backend
	}
	if s.Memory.TopKPath == "" {
		s.Memory.TopKPath = defaults.Memory.TopKPath
	}
	if s.Memory.QTablePath == "" {
		s.Memory.QTablePath = defaults.Memory.QTablePath
	}
	if s.Memory.SQLitePath == "" {
		s.Memory.SQLitePath = defaults.Memory.SQLitePath
	}
	if s.Memory.TopK == 0 {
		s.Memory.TopK = defaults.Memory.TopK
	}
	s.Agent.Backend = strings.ToLower(s.Agent.Backend)
	if s.Agent.Backend == "claude" {
		s.Agent.Backend = BackendAnthropic
	}
	if s.Agent.Backend == "" {
		s.Agent.Backend = defaults.Agent.Backend
	}
	if s.Agent.Model == "" {
		s.Agent.Model = DefaultModelFor(s.Agent.Backend)
	}
	if s.Agent.Policy == "" {
		s.Agent.Policy = defaults.Agent.Policy
	}
	if s.Training.MaxSteps == 0 {
		s.Training.MaxSteps = defaults.Training.MaxSteps
	}
	if s.Rubric.Preset == "" {
		s.Rubric.Preset = defaults.Rubric.Preset
	}
	if s.LogLevel == "" {
		s.LogLevel = defaults.LogLevel
	}
}

// Validate rejects settings no run could honour. Map layout checks are left
// to the grid world constructor.
func (s *Settings) Validate() error {
	switch s.Memory.Backend {
	case StoreFile, StoreMemory, StoreSQLite:
	default:
		return errors.Errorf("unknown memory backend %q", s.Memory.Backend)
	}
	switch s.Agent.Backend {
	case BackendMock, BackendQGreedy, BackendOllama, BackendOpenAI, BackendAnthropic, BackendGemini:
	default:
		return errors.Errorf("unknown agent backend %q", s.Agent.Backend)
	}
	switch s.Rubric.Preset {
	case RubricDefault, RubricCausal:
	default:
		return errors.Errorf("unknown rubric preset %q", s.Rubric.Preset)
	}
	if s.Memory.TopK < 0 {
		return errors.Errorf("top_k must be positive (got %d)", s.Memory.TopK)
	}
	if s.Training.Episodes < 0 {
		return errors.Errorf("episodes must not be negative (got %d)", s.Training.Episodes)
	}
	if s.Training.MaxSteps < 0 {
		return errors.Errorf("max_steps must not be negative (got %d)", s.Training.MaxSteps)
	}
	if s.Agent.Epsilon < 0 || s.Agent.Epsilon > 1 {
		return errors.Errorf("epsilon must be between 0 and 1 (got %.2f)", s.Agent.Epsilon)
	}
	if s.Agent.BackendIsRemote() && s.Agent.Model == "" {
		return errors.Errorf("agent backend %q needs a model", s.Agent.Backend)
	}
	return nil
}

// BackendIsRemote reports whether the agent talks to a language model.
func (a AgentSettings) BackendIsRemote() bool {
	switch a.Backend {
	case BackendOllama, BackendOpenAI, BackendAnthropic, BackendGemini:
		return true
	}
	return false
}
