package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"frozenlake-rl/internal/config"
	"frozenlake-rl/internal/engine"
	"frozenlake-rl/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "frozenlake: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errors.New("missing subcommand; try 'train', 'play', 'memory' or 'config'")
	}

	switch args[0] {
	case "train":
		return runTrain(args[1:], stdout)
	case "play":
		return runPlay(args[1:], stdout)
	case "memory":
		return runMemory(args[1:], stdout)
	case "config":
		return runConfig(args[1:], stdout)
	default:
		return errors.Errorf("unknown subcommand %q", args[0])
	}
}

func runTrain(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "YAML settings file")
	episodes := fs.Int("episodes", 0, "number of training episodes")
	agentName := fs.String("agent", "", "agent backend: mock, qgreedy, ollama, openai, anthropic, gemini")
	model := fs.String("model", "", "model name for language model backends")
	seed := fs.Int64("seed", 0, "deterministic seed (0 for default)")
	epsilon := fs.Float64("epsilon", 0, "exploration rate for the qgreedy agent (0-1)")
	store := fs.String("store", "", "persistence backend: file, memory, sqlite")
	causal := fs.Bool("causal", false, "keyword parser, causal feedback and shaped rubric")
	jsonOut := fs.Bool("json", false, "stream snapshots as JSON lines on stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "episodes":
			settings.Training.Episodes = *episodes
		case "agent":
			settings.Agent.Backend = strings.ToLower(*agentName)
			settings.Agent.Model = config.DefaultModelFor(settings.Agent.Backend)
		case "seed":
			settings.Agent.Seed = *seed
		case "epsilon":
			settings.Agent.Epsilon = *epsilon
		case "store":
			settings.Memory.Backend = strings.ToLower(*store)
		case "causal":
			settings.Environment.Causal = *causal
			if *causal {
				settings.Rubric.Preset = config.RubricCausal
			}
		}
	})
	if *model != "" {
		settings.Agent.Model = *model
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	base := newLogger(settings)
	defer base.Close()
	log := base.WithRun(uuid.NewString()[:8])
	log.InfoWithIntention(logger.IntentionConfig, "train config",
		"agent", settings.Agent.Backend, "model", settings.Agent.Model, "episodes", settings.Training.Episodes,
		"store", settings.Memory.Backend, "causal", settings.Environment.Causal)

	env, err := buildEnvironment(settings)
	if err != nil {
		return err
	}
	stores, err := openStores(settings, log)
	if err != nil {
		log.ErrorWithIntention(logger.IntentionConfig, "could not open stores", "backend", settings.Memory.Backend, "error", err)
		return err
	}
	defer stores.Close()

	agent, err := buildAgent(settings, env, stores.qvalues)
	if err != nil {
		return err
	}

	var memory *engine.TrajectoryMemory
	if settings.Training.UseTrajectoryMemory {
		memory = stores.memory
	}
	var qvalues *engine.QTable
	if settings.Training.UseQTable {
		qvalues = stores.qvalues
	}
	trainer := engine.NewTrainer(trainerConfig(settings), env, agent, memory, qvalues, log.WithComponent("trainer"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	enc := json.NewEncoder(stdout)
	var final engine.Snapshot
	for snapshot := range trainer.Run(ctx) {
		final = snapshot
		if *jsonOut {
			if err := enc.Encode(snapshot); err != nil {
				return errors.Wrap(err, "encode snapshot")
			}
		}
	}
	if err := trainer.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.WarnWithIntention(logger.IntentionStatus, "training interrupted", "episodes", final.EpisodesCompleted)
		} else {
			log.ErrorWithIntention(logger.IntentionStatus, "training failed", "episodes", final.EpisodesCompleted, "error", err)
			return err
		}
	}
	if *jsonOut {
		return nil
	}

	printSummary(stdout, final)
	if settings.Training.UseQTable {
		fmt.Fprint(stdout, stores.qvalues.StateValues(env.World.Rows(), env.World.Cols()).Format(env.World))
	}
	return nil
}

func printSummary(w io.Writer, final engine.Snapshot) {
	if final.EpisodesCompleted == 0 {
		fmt.Fprintln(w, "summary: no episodes completed")
		return
	}
	n := float64(final.EpisodesCompleted)
	fmt.Fprintf(w, "summary: episodes=%d avg_score=%.2f avg_steps=%.2f success_rate=%.2f\n",
		final.EpisodesCompleted, final.TotalScore/n, float64(final.TotalSteps)/n, float64(final.SuccessCount)/n)
}

func runPlay(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "YAML settings file")
	actions := fs.String("actions", "", "comma separated actions, e.g. RIGHT,RIGHT,DOWN (omit to choose interactively)")
	causal := fs.Bool("causal", false, "keyword parser, causal feedback and shaped rubric")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var next actionSource
	if strings.TrimSpace(*actions) != "" {
		next = scriptedActions(strings.Split(*actions, ","))
	} else {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("play needs -actions when stdin is not a terminal")
		}
		next = promptActions
	}

	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		return err
	}
	if *causal {
		settings.Environment.Causal = true
		settings.Rubric.Preset = config.RubricCausal
	}
	env, err := buildEnvironment(settings)
	if err != nil {
		return err
	}

	obs := env.Reset()
	fmt.Fprintln(stdout, obs.Message)
	var trajectory engine.Trajectory
	for !obs.Terminated {
		label, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		before := obs.Message
		obs = env.Step(label)
		feedback := env.Feedback(obs)
		trajectory = append(trajectory, engine.StepRecord{
			Context:  before,
			Action:   strings.ToUpper(strings.TrimSpace(label)),
			Outcome:  obs.Outcome,
			Feedback: feedback,
		}.WithPosition(obs.Position))
		fmt.Fprintf(stdout, "step %d: %s\n", len(trajectory), feedback)
	}
	fmt.Fprint(stdout, env.World.Render())

	outcome := engine.OutcomeOngoing
	if obs.Terminated {
		outcome = obs.Outcome
	}
	for _, c := range env.Rubric.Breakdown(trajectory, outcome) {
		fmt.Fprintf(stdout, "%-16s raw=%6.2f weight=%4.2f -> %6.2f\n", c.Name, c.Raw, c.Weight, c.Weighted)
	}
	score := env.Score(trajectory, outcome)
	fmt.Fprintf(stdout, "outcome=%s score=%.2f fitness=%.2f\n", outcome, score, engine.Fitness(score, len(trajectory)))
	return nil
}

// actionSource yields the next action label; ok is false once the player
// is done.
type actionSource func() (label string, ok bool, err error)

func scriptedActions(labels []string) actionSource {
	i := 0
	return func() (string, bool, error) {
		if i >= len(labels) {
			return "", false, nil
		}
		i++
		return labels[i-1], true, nil
	}
}

const quitChoice = "QUIT"

func promptActions() (string, bool, error) {
	items := []string{string(engine.ActionUp), string(engine.ActionDown), string(engine.ActionLeft), string(engine.ActionRight), quitChoice}
	prompt := promptui.Select{
		Label: "Move",
		Items: items,
		Size:  len(items),
	}
	_, choice, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "action selection failed")
	}
	if choice == quitChoice {
		return "", false, nil
	}
	return choice, true, nil
}

func runMemory(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("memory", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "YAML settings file")
	store := fs.String("store", "", "persistence backend: file, memory, sqlite")

	if err := fs.Parse(args); err != nil {
		return err
	}
	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		return err
	}
	if *store != "" {
		settings.Memory.Backend = strings.ToLower(*store)
		if err := settings.Validate(); err != nil {
			return err
		}
	}

	log := newLogger(settings)
	defer log.Close()
	env, err := buildEnvironment(settings)
	if err != nil {
		return err
	}
	stores, err := openStores(settings, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	fmt.Fprintf(stdout, "top-%d trajectories (%d retained):\n", stores.memory.Capacity(), stores.memory.Len())
	fmt.Fprintln(stdout, stores.memory.Lessons())
	fmt.Fprintf(stdout, "q-table: %d states\n", stores.qvalues.Len())
	fmt.Fprint(stdout, stores.qvalues.StateValues(env.World.Rows(), env.World.Cols()).Format(env.World))
	return nil
}

func runConfig(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	out := fs.String("out", "frozenlake.yaml", "where to write the default settings")
	schema := fs.Bool("schema", false, "print the settings JSON Schema instead")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *schema {
		data, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := config.SaveSettings(*out, config.DefaultSettings()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *out)
	return nil
}
