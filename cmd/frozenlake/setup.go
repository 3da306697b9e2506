package main

import (
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"frozenlake-rl/internal/config"
	"frozenlake-rl/internal/engine"
	"frozenlake-rl/internal/storage"
	"frozenlake-rl/pkg/client"
	"frozenlake-rl/pkg/logger"
)

const (
	topKDocument   = "top_k_trajectories"
	qTableDocument = "q_table"
)

func newLogger(settings *config.Settings) *logger.Logger {
	level := logger.LogLevel(settings.LogLevel)
	var log *logger.Logger
	if settings.LogFile != "" {
		log = logger.NewLoggerWithFile(level, os.Stderr, settings.LogFile)
	} else {
		log = logger.NewLogger(level)
	}
	logger.SetGlobalLogger(log)
	return log
}

func buildEnvironment(settings *config.Settings) (*engine.Environment, error) {
	world, err := engine.NewGridWorld(settings.Environment.Map)
	if err != nil {
		return nil, err
	}
	rubric, err := buildRubric(settings.Rubric, world)
	if err != nil {
		return nil, err
	}
	if settings.Environment.Causal {
		return engine.NewEnvironment(world, engine.KeywordParser{}, rubric, engine.CausalFeedback), nil
	}
	return engine.NewEnvironment(world, engine.NewXMLParser("action"), rubric, engine.PlainFeedback), nil
}

// buildRubric starts from the preset and applies weight overrides. A weight
// for a verifier the preset lacks adds that verifier.
func buildRubric(settings config.RubricSettings, world *engine.GridWorld) (*engine.Rubric, error) {
	var rubric *engine.Rubric
	switch settings.Preset {
	case config.RubricCausal:
		rubric = engine.NewCausalRubric(world.Start(), world.Goal())
	default:
		rubric = engine.NewDefaultRubric()
	}
	for name, weight := range settings.Weights {
		if rubric.SetWeight(name, weight) {
			continue
		}
		v, ok := verifierByName(name, world)
		if !ok {
			return nil, errors.Errorf("unknown verifier %q", name)
		}
		rubric.AddVerifier(name, v, weight)
	}
	return rubric, nil
}

func verifierByName(name string, world *engine.GridWorld) (engine.Verifier, bool) {
	switch name {
	case engine.VerifierReachedGoal:
		return engine.ReachedGoal, true
	case engine.VerifierFellInHole:
		return engine.FellInHole, true
	case engine.VerifierStepEfficiency:
		return engine.StepEfficiency, true
	case engine.VerifierHitWall:
		return engine.HitWall, true
	case engine.VerifierDistanceDelta:
		return engine.DistanceDelta{Start: world.Start(), Goal: world.Goal()}, true
	case engine.VerifierFinalDistance:
		return engine.FinalDistance{Goal: world.Goal(), MaxDistance: world.Rows() + world.Cols() - 2}, true
	}
	return nil, false
}

// stores owns the persistent trajectory memory and Q-table and whatever
// backend handles they hold open.
type stores struct {
	memory   *engine.TrajectoryMemory
	qvalues  *engine.QTable
	backends []storage.Backend
}

func openStores(settings *config.Settings, log *logger.Logger) (*stores, error) {
	mem := settings.Memory
	topKPath, qPath := mem.TopKPath, mem.QTablePath
	if mem.Backend == storage.KindSQLite {
		topKPath, qPath = mem.SQLitePath, mem.SQLitePath
		if err := os.MkdirAll(filepath.Dir(mem.SQLitePath), 0o755); err != nil {
			return nil, errors.Wrap(err, "create sqlite directory")
		}
	}

	topK, err := storage.NewBackend(mem.Backend, topKPath, topKDocument)
	if err != nil {
		return nil, err
	}
	q, err := storage.NewBackend(mem.Backend, qPath, qTableDocument)
	if err != nil {
		_ = storage.CloseIfSupported(topK)
		return nil, err
	}

	return &stores{
		memory:   engine.NewTrajectoryMemory(topK, mem.TopK, log.WithComponent("memory")),
		qvalues:  engine.NewQTable(q, log.WithComponent("qtable")),
		backends: []storage.Backend{topK, q},
	}, nil
}

func (s *stores) Close() {
	for _, b := range s.backends {
		_ = storage.CloseIfSupported(b)
	}
}

func buildAgent(settings *config.Settings, env *engine.Environment, qvalues *engine.QTable) (engine.Agent, error) {
	seed := settings.Agent.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	var agent engine.Agent
	switch settings.Agent.Backend {
	case config.BackendMock:
		agent = engine.NewMockAgent(rng, settings.Agent.Policy)
	case config.BackendQGreedy:
		agent = engine.NewQGreedyAgent(rng, env.World, qvalues, settings.Agent.Epsilon)
	default:
		gen, err := client.NewGenerator(settings.Agent)
		if err != nil {
			return nil, err
		}
		agent = gen
	}
	if settings.Agent.FewShot > 0 {
		agent = engine.NewFewShotAgent(agent, settings.Agent.FewShot)
	}
	return agent, nil
}

func trainerConfig(settings *config.Settings) engine.Config {
	return engine.Config{
		Episodes:     settings.Training.Episodes,
		MaxSteps:     settings.Training.MaxSteps,
		EvolveEvery:  settings.Training.EvolveEvery,
		StepDelayMs:  settings.Training.StepDelayMs,
		Epsilon:      settings.Agent.Epsilon,
		EpsilonMin:   settings.Agent.EpsilonMin,
		EpsilonDecay: settings.Agent.EpsilonDecay,
	}
}
