package engine

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"frozenlake-rl/pkg/logger"
)

const (
	StatusRunning         = "running"
	StatusEpisodeComplete = "episode_complete"
	StatusDone            = "done"
	StatusCancelled       = "cancelled"
)

const (
	DefaultMaxSteps    = 20
	DefaultEvolveEvery = 3
)

// Per-step shaping fed to the Q store.
const (
	progressReward = 0.1
	stallPenalty   = -0.1
	goalReward     = 1.0
	holePenalty    = -1.0
)

const invalidFormatFeedback = "Invalid format."

type Config struct {
	Episodes     int
	MaxSteps     int
	EvolveEvery  int
	StepDelayMs  int
	Epsilon      float64
	EpsilonMin   float64
	EpsilonDecay float64
}

// Snapshot is one progress report streamed from Run.
type Snapshot struct {
	Step              int      `json:"step"`
	Episode           int      `json:"episode"`
	EpisodeSteps      int      `json:"episodeSteps"`
	Action            string   `json:"action,omitempty"`
	Position          Position `json:"position"`
	Outcome           Outcome  `json:"outcome"`
	Feedback          string   `json:"feedback,omitempty"`
	Reward            float64  `json:"reward"`
	EpisodeScore      float64  `json:"episodeScore"`
	Fitness           float64  `json:"fitness"`
	SuccessCount      int      `json:"successCount"`
	EpisodesCompleted int      `json:"episodesCompleted"`
	TotalScore        float64  `json:"totalScore"`
	TotalSteps        int      `json:"totalSteps"`
	Status            string   `json:"status"`
}

// Trainer drives episodes sequentially: it prompts the agent, steps the
// environment, shapes the Q store per step and ranks finished episodes into
// trajectory memory. Either store may be nil.
type Trainer struct {
	cfg     Config
	env     *Environment
	agent   Agent
	memory  *TrajectoryMemory
	qvalues *QTable
	log     *logger.Logger

	step              int
	successCount      int
	episodesCompleted int
	totalScore        float64
	totalSteps        int
	episodeSteps      int
	err               error
}

func NewTrainer(cfg Config, env *Environment, agent Agent, memory *TrajectoryMemory, qvalues *QTable, log *logger.Logger) *Trainer {
	if cfg.Episodes < 0 {
		cfg.Episodes = 0
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.EvolveEvery < 0 {
		cfg.EvolveEvery = 0
	}
	if cfg.StepDelayMs < 0 {
		cfg.StepDelayMs = 0
	}
	if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
		cfg.Epsilon = 0.1
	}
	if cfg.EpsilonMin < 0 || cfg.EpsilonMin > cfg.Epsilon {
		cfg.EpsilonMin = 0
	}
	if cfg.EpsilonDecay < 0 {
		cfg.EpsilonDecay = 0
	}
	if log == nil {
		log = logger.NewComponentLogger("trainer")
	}
	return &Trainer{cfg: cfg, env: env, agent: agent, memory: memory, qvalues: qvalues, log: log}
}

// Run plays the configured episodes on a goroutine and streams a Snapshot
// per step. The channel closes when training ends; Err then reports why it
// stopped early, if it did. A reader that stops reading must cancel ctx.
func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	// one slot so the closing snapshot never waits on a reader
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		for episode := 1; episode <= t.cfg.Episodes; episode++ {
			t.episodeSteps = 0
			if err := ctx.Err(); err != nil {
				t.stop(out, episode, err)
				return
			}
			if setter, ok := t.agent.(epsilonSetter); ok {
				setter.setEpsilon(clampFloat(t.cfg.Epsilon, 0, 1))
			}
			if err := t.runEpisode(ctx, episode, out); err != nil {
				t.stop(out, episode, err)
				return
			}
			if t.cfg.EpsilonDecay > 0 {
				t.cfg.Epsilon = maxFloat(t.cfg.EpsilonMin, t.cfg.Epsilon*t.cfg.EpsilonDecay)
			}
			if t.memory != nil && t.cfg.EvolveEvery > 0 && episode%t.cfg.EvolveEvery == 0 {
				t.env.EvolveSystemPrompt(t.memory.Lessons())
				t.log.InfoWithIntention(logger.IntentionMemory, "system prompt evolved", "episode", episode, "retained", t.memory.Len())
			}
		}
		if err := t.send(ctx, out, t.snapshot(StatusDone, t.cfg.Episodes, 0, 0, 0)); err != nil {
			t.stop(out, t.cfg.Episodes, err)
		}
	}()
	return out
}

// send delivers s unless ctx ends first.
func (t *Trainer) send(ctx context.Context, out chan<- Snapshot, s Snapshot) error {
	select {
	case out <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop records err and leaves a cancelled snapshot in the buffer, replacing
// one the reader never took.
func (t *Trainer) stop(out chan Snapshot, episode int, err error) {
	t.err = err
	final := t.snapshot(StatusCancelled, episode, t.episodeSteps, 0, 0)
	for {
		select {
		case out <- final:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

// Err is valid once the Run channel has closed.
func (t *Trainer) Err() error {
	return t.err
}

func (t *Trainer) runEpisode(ctx context.Context, episode int, out chan<- Snapshot) error {
	obs := t.env.Reset()
	visits := newVisitCounts(t.env.World.Rows(), t.env.World.Cols())
	visits.add(obs.Position)

	var recalled string
	if t.memory != nil {
		recalled = FormatRecalledMemories(t.memory.TopK())
	}

	var trajectory Trajectory
	current := obs.Message
	steps := 0
	for steps < t.cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			return err
		}

		prompt := t.buildPrompt(obs.Position, current, recalled, steps == 0)
		reply, err := t.agent.Generate(ctx, t.env.SystemPrompt(), prompt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.log.WarnWithIntention(logger.IntentionAgent, "agent failed to reply, counting step as invalid", "episode", episode, "step", steps, "error", err)
		}

		record := StepRecord{Context: current, Response: reply}
		action, ok := t.env.Parser.Parse(reply)
		if !ok {
			record.Action = InvalidAction
			record.Outcome = OutcomeOngoing
			record.Feedback = invalidFormatFeedback
			trajectory = append(trajectory, record)
			steps++
			t.step++
			t.episodeSteps = steps
			current = invalidFormatFeedback
			t.log.DebugWithIntention(logger.IntentionStep, "unparseable reply", "episode", episode, "step", steps)
			snap := t.snapshot(StatusRunning, episode, steps, 0, 0)
			snap.Action = InvalidAction
			snap.Feedback = invalidFormatFeedback
			if err := t.send(ctx, out, snap); err != nil {
				return err
			}
			continue
		}

		previous := obs.Position
		next := t.env.Step(action)
		feedback := t.env.Feedback(next)
		reward := shapedReward(previous, next)
		record.Action = strings.ToUpper(strings.TrimSpace(action))
		record.Outcome = next.Outcome
		record.Feedback = feedback
		record = record.WithPosition(next.Position).WithReward(reward)
		trajectory = append(trajectory, record)

		if t.qvalues != nil {
			// failures are logged by the store; the episode carries on
			_ = t.qvalues.UpdateStep(previous, action, reward, next.Position, next.Terminated)
		}

		steps++
		t.step++
		t.episodeSteps = steps
		visits.add(next.Position)
		obs = next
		current = feedback
		t.log.DebugWithIntention(logger.IntentionStep, feedback, "episode", episode, "step", steps, "action", record.Action)

		snap := t.snapshot(StatusRunning, episode, steps, 0, reward)
		snap.Action = record.Action
		snap.Feedback = feedback
		if err := t.send(ctx, out, snap); err != nil {
			return err
		}

		if t.cfg.StepDelayMs > 0 && !next.Terminated {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(t.cfg.StepDelayMs) * time.Millisecond):
			}
		}
		if next.Terminated {
			break
		}
	}

	outcome := OutcomeOngoing
	if obs.Terminated {
		outcome = obs.Outcome
	}
	score := t.env.Score(trajectory, outcome)
	for _, c := range t.env.Rubric.Breakdown(trajectory, outcome) {
		t.log.DebugWithIntention(logger.IntentionReward, "verifier", "name", c.Name, "raw", c.Raw, "weighted", c.Weighted)
	}

	record := EpisodeRecord{
		Trajectory:   trajectory,
		Score:        score,
		Steps:        steps,
		Fitness:      Fitness(score, steps),
		FinalOutcome: outcome,
	}
	if t.memory != nil {
		admitted, err := t.memory.AddEpisode(trajectory, score, steps)
		if err != nil {
			t.log.WarnWithIntention(logger.IntentionMemory, "episode kept in memory only", "episode", episode, "error", errors.Cause(err))
		}
		record = admitted
		record.FinalOutcome = outcome
	}
	if updater, ok := t.agent.(Updater); ok {
		updater.Update([]EpisodeRecord{record})
	}

	if outcome == OutcomeGoal {
		t.successCount++
	}
	t.totalScore += score
	t.totalSteps += steps
	t.episodesCompleted++

	t.log.InfoWithIntention(logger.IntentionEpisode, "episode complete", "episode", episode, "outcome", outcome, "score", score, "fitness", record.Fitness, "steps", steps)
	t.log.DebugWithIntention(logger.IntentionEpisode, "visit heatmap\n"+visits.heatmap(), "episode", episode)

	snap := t.snapshot(StatusEpisodeComplete, episode, steps, score, 0)
	snap.Fitness = record.Fitness
	snap.Outcome = outcome
	return t.send(ctx, out, snap)
}

func (t *Trainer) buildPrompt(pos Position, current, recalled string, first bool) string {
	var b strings.Builder
	if first && recalled != "" {
		b.WriteString(recalled)
		b.WriteByte('\n')
	}
	if t.qvalues != nil {
		b.WriteString(FormatQValueHints(t.qvalues.GetQValues(pos)))
		b.WriteByte('\n')
	}
	b.WriteString("Observation: ")
	b.WriteString(current)
	return b.String()
}

// shapedReward pays for progress toward the goal and settles terminal
// steps at ±1.
func shapedReward(previous Position, obs Observation) float64 {
	switch obs.Outcome {
	case OutcomeGoal:
		return goalReward
	case OutcomeHole:
		return holePenalty
	}
	if Manhattan(obs.Position, obs.GoalPosition) < Manhattan(previous, obs.GoalPosition) {
		return progressReward
	}
	return stallPenalty
}

func (t *Trainer) snapshot(status string, episode, episodeSteps int, episodeScore, reward float64) Snapshot {
	return Snapshot{
		Step:              t.step,
		Episode:           episode,
		EpisodeSteps:      episodeSteps,
		Position:          t.env.World.Position(),
		Outcome:           t.env.World.Outcome(),
		Reward:            reward,
		EpisodeScore:      episodeScore,
		SuccessCount:      t.successCount,
		EpisodesCompleted: t.episodesCompleted,
		TotalScore:        t.totalScore,
		TotalSteps:        t.totalSteps,
		Status:            status,
	}
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
