package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frozenlake-rl/internal/config"
	"frozenlake-rl/internal/engine"
)

func writeConfig(t *testing.T, store string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
log_level: error
memory:
  backend: %s
  top_k_path: %s
  q_table_path: %s
  sqlite_path: %s
agent:
  backend: mock
  seed: 3
training:
  episodes: 2
  max_steps: 8
`, store,
		filepath.Join(dir, "top_k.json"),
		filepath.Join(dir, "q_table.json"),
		filepath.Join(dir, "db", "frozenlake.db"))
	path := filepath.Join(dir, "frozenlake.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunRequiresKnownSubcommand(t *testing.T) {
	if err := run(nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected an error without a subcommand")
	}
	if err := run([]string{"fly"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected an error for an unknown subcommand")
	}
}

func TestPlayReachesGoal(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"play", "-actions", "right,right,down,down,down,right"}, &out)
	if err != nil {
		t.Fatal(err)
	}
	text := out.String()
	if !strings.Contains(text, "You reached the goal! Success.") {
		t.Fatalf("expected goal feedback, got %q", text)
	}
	if !strings.Contains(text, "outcome=goal score=1.14") {
		t.Fatalf("expected goal score line, got %q", text)
	}
}

func TestPlayStopsAtHole(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"play", "-causal", "-actions", "DOWN,RIGHT,RIGHT"}, &out); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	if !strings.Contains(text, "CRITICAL FAILURE") || strings.Contains(text, "step 3:") {
		t.Fatalf("expected play to stop on the hole, got %q", text)
	}
	if !strings.Contains(text, "outcome=hole") {
		t.Fatalf("expected hole outcome, got %q", text)
	}
}

func TestTrainWithFileStoreThenInspectMemory(t *testing.T) {
	path := writeConfig(t, config.StoreFile)
	var out bytes.Buffer
	if err := run([]string{"train", "-config", path}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "summary: episodes=2") {
		t.Fatalf("expected summary, got %q", out.String())
	}

	out.Reset()
	if err := run([]string{"memory", "-config", path}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "top-5 trajectories (2 retained):") {
		t.Fatalf("expected persisted trajectories, got %q", out.String())
	}
}

func TestTrainWithSQLiteStore(t *testing.T) {
	path := writeConfig(t, config.StoreSQLite)
	if err := run([]string{"train", "-config", path, "-episodes", "3"}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run([]string{"memory", "-config", path}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "(3 retained)") {
		t.Fatalf("expected 3 episodes in sqlite, got %q", out.String())
	}
}

func TestTrainStreamsJSON(t *testing.T) {
	path := writeConfig(t, config.StoreMemory)
	var out bytes.Buffer
	if err := run([]string{"train", "-config", path, "-json"}, &out); err != nil {
		t.Fatal(err)
	}
	var last engine.Snapshot
	lines := 0
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if err := json.Unmarshal(scanner.Bytes(), &last); err != nil {
			t.Fatalf("line %d is not a snapshot: %v", lines+1, err)
		}
		lines++
	}
	if lines < 3 {
		t.Fatalf("expected step snapshots, got %d lines", lines)
	}
	if last.Status != engine.StatusDone || last.EpisodesCompleted != 2 {
		t.Fatalf("unexpected final snapshot %+v", last)
	}
}

func TestConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frozenlake.yaml")
	if err := run([]string{"config", "-out", path}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	settings, err := config.LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if settings.Agent.Backend != config.BackendMock {
		t.Fatalf("expected default settings, got %+v", settings.Agent)
	}
}

func TestBuildRubricWeights(t *testing.T) {
	world, err := engine.NewGridWorld(engine.DefaultMap)
	if err != nil {
		t.Fatal(err)
	}
	rubric, err := buildRubric(config.RubricSettings{
		Preset:  config.RubricDefault,
		Weights: map[string]float64{engine.VerifierReachedGoal: 2, engine.VerifierFinalDistance: 1},
	}, world)
	if err != nil {
		t.Fatal(err)
	}
	names := rubric.Names()
	if len(names) != 4 || names[3] != engine.VerifierFinalDistance {
		t.Fatalf("expected final_distance appended, got %v", names)
	}
	if got := rubric.Score(nil, engine.OutcomeGoal); got != 2+1 {
		t.Fatalf("expected reweighted goal score 3, got %v", got)
	}

	if _, err := buildRubric(config.RubricSettings{Weights: map[string]float64{"vibes": 1}}, world); err == nil {
		t.Fatalf("expected unknown verifier error")
	}
}

func TestBuildAgent(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Agent.FewShot = 2
	env, err := buildEnvironment(settings)
	if err != nil {
		t.Fatal(err)
	}
	agent, err := buildAgent(settings, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := agent.(*engine.FewShotAgent); !ok {
		t.Fatalf("expected few-shot wrapper, got %T", agent)
	}

	settings.Agent.FewShot = 0
	settings.Agent.Backend = config.BackendQGreedy
	agent, err = buildAgent(settings, env, engine.NewQTable(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := agent.(*engine.QGreedyAgent); !ok {
		t.Fatalf("expected q-greedy agent, got %T", agent)
	}
}

func TestConfigPrintsSchema(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"config", "-schema"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"log_level"`) {
		t.Fatalf("expected schema output, got %q", out.String())
	}
}

func TestScriptedActions(t *testing.T) {
	next := scriptedActions([]string{"UP", "LEFT"})
	for _, want := range []string{"UP", "LEFT"} {
		got, ok, err := next()
		if err != nil || !ok || got != want {
			t.Fatalf("expected %s, got %q %v %v", want, got, ok, err)
		}
	}
	if _, ok, _ := next(); ok {
		t.Fatalf("expected the script to end")
	}
}

func TestTrainLogsStoreFailureToFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "frozenlake.log")
	body := fmt.Sprintf(`
log_level: info
log_file: %s
memory:
  backend: sqlite
  sqlite_path: %s
agent:
  backend: mock
training:
  episodes: 1
`, logPath, filepath.Join(blocker, "db", "frozenlake.db"))
	path := filepath.Join(dir, "frozenlake.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := run([]string{"train", "-config", path}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected train to fail when the sqlite directory cannot be created")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("expected log file, got %v", err)
	}
	if !strings.Contains(string(data), "could not open stores") {
		t.Fatalf("expected the store failure in the log file, got %q", string(data))
	}
}
