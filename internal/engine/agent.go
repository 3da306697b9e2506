package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Agent produces the raw text reply for one turn.
type Agent interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Updater is implemented by agents that learn from finished episodes.
type Updater interface {
	Update(batch []EpisodeRecord)
}

// epsilonSetter is implemented by agents whose exploration rate the trainer
// schedules.
type epsilonSetter interface {
	setEpsilon(eps float64)
}

const (
	PolicyRandom = "random"
	PolicyFixed  = "fixed"
)

func actionReply(thought string, a Action) string {
	return fmt.Sprintf("<thought>%s</thought>\n<action>%s</action>", thought, a)
}

// MockAgent stands in for a language model: it answers with a random or a
// fixed action in the tagged reply format.
type MockAgent struct {
	rng    *rand.Rand
	policy string
	fixed  Action
}

func NewMockAgent(rng *rand.Rand, policy string) *MockAgent {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if policy != PolicyFixed {
		policy = PolicyRandom
	}
	return &MockAgent{rng: rng, policy: policy, fixed: ActionRight}
}

func (a *MockAgent) Generate(_ context.Context, _, _ string) (string, error) {
	action := a.fixed
	if a.policy == PolicyRandom {
		action = Actions[a.rng.Intn(len(Actions))]
	}
	return actionReply(fmt.Sprintf("I am on a safe tile. I will move %s.", action), action), nil
}

// QGreedyAgent reads the Q store at the world's current position and acts
// ε-greedily, breaking ties uniformly at random.
type QGreedyAgent struct {
	rng     *rand.Rand
	world   *GridWorld
	qvalues *QTable
	epsilon float64
}

func NewQGreedyAgent(rng *rand.Rand, world *GridWorld, qvalues *QTable, epsilon float64) *QGreedyAgent {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &QGreedyAgent{rng: rng, world: world, qvalues: qvalues, epsilon: epsilon}
}

func (a *QGreedyAgent) setEpsilon(eps float64) {
	a.epsilon = eps
}

func (a *QGreedyAgent) act() Action {
	if a.rng.Float64() < a.epsilon {
		return Actions[a.rng.Intn(len(Actions))]
	}
	state := a.world.Position()
	bestAction := Actions[0]
	bestScore := math.Inf(-1)
	countBest := 0
	for _, action := range Actions {
		score := a.qvalues.GetQValues(state)[action]
		if score > bestScore {
			bestScore = score
			bestAction = action
			countBest = 1
		} else if score == bestScore {
			countBest++
			if a.rng.Intn(countBest) == 0 {
				bestAction = action
			}
		}
	}
	return bestAction
}

func (a *QGreedyAgent) Generate(_ context.Context, _, _ string) (string, error) {
	action := a.act()
	return actionReply(fmt.Sprintf("At %s the learned values favour %s.", a.world.Position(), action), action), nil
}

// FewShotAgent wraps another agent and prepends transcripts of recent
// successful episodes to every prompt.
type FewShotAgent struct {
	inner       Agent
	maxExamples int
	examples    []string
}

func NewFewShotAgent(inner Agent, maxExamples int) *FewShotAgent {
	if maxExamples <= 0 {
		maxExamples = 3
	}
	return &FewShotAgent{inner: inner, maxExamples: maxExamples}
}

func (a *FewShotAgent) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if len(a.examples) > 0 {
		prompt = "\n\n--- SUCCESSFUL EXAMPLES ---\n" + strings.Join(a.examples, "\n") + "\n---------------------------\n\n" + prompt
	}
	return a.inner.Generate(ctx, systemPrompt, prompt)
}

// Update keeps goal-reaching episodes, newest last, up to the limit.
func (a *FewShotAgent) Update(batch []EpisodeRecord) {
	for _, e := range batch {
		if e.FinalOutcome != OutcomeGoal {
			continue
		}
		a.examples = append(a.examples, FormatEpisodeForPrompt(e))
	}
	if extra := len(a.examples) - a.maxExamples; extra > 0 {
		a.examples = a.examples[extra:]
	}
}

func (a *FewShotAgent) setEpsilon(eps float64) {
	if inner, ok := a.inner.(epsilonSetter); ok {
		inner.setEpsilon(eps)
	}
}

func (a *FewShotAgent) Examples() int { return len(a.examples) }
