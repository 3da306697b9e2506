package engine

// Environment is the facade an episode driver talks to. Apart from the
// world it only tracks the previous position used by causal feedback.
type Environment struct {
	World     *GridWorld
	Parser    ActionParser
	Rubric    *Rubric
	Formatter FeedbackFormatter

	basePrompt    string
	currentPrompt string
	previous      Position
}

func NewEnvironment(world *GridWorld, parser ActionParser, rubric *Rubric, formatter FeedbackFormatter) *Environment {
	if parser == nil {
		parser = NewXMLParser("action")
	}
	if rubric == nil {
		rubric = NewDefaultRubric()
	}
	if formatter == nil {
		formatter = PlainFeedback
	}
	prompt := BaseSystemPrompt(world)
	return &Environment{
		World:         world,
		Parser:        parser,
		Rubric:        rubric,
		Formatter:     formatter,
		basePrompt:    prompt,
		currentPrompt: prompt,
		previous:      world.Start(),
	}
}

// LoadEnvironment builds the strict setup: XML actions, world messages as
// feedback, outcome and efficiency scoring.
func LoadEnvironment(layout []string) (*Environment, error) {
	world, err := NewGridWorld(layout)
	if err != nil {
		return nil, err
	}
	return NewEnvironment(world, NewXMLParser("action"), NewDefaultRubric(), PlainFeedback), nil
}

// LoadCausalEnvironment builds the lenient setup: keyword actions, causal
// feedback, and per-step shaping in the rubric.
func LoadCausalEnvironment(layout []string) (*Environment, error) {
	world, err := NewGridWorld(layout)
	if err != nil {
		return nil, err
	}
	rubric := NewCausalRubric(world.Start(), world.Goal())
	return NewEnvironment(world, KeywordParser{}, rubric, CausalFeedback), nil
}

func (e *Environment) Reset() Observation {
	e.previous = e.World.Start()
	return e.World.Reset()
}

func (e *Environment) Step(action string) Observation {
	return e.World.Step(action)
}

// Feedback formats obs against the previous position, then records
// obs.Position as the new previous position.
func (e *Environment) Feedback(obs Observation) string {
	msg := e.Formatter.Format(obs, FeedbackContext{Previous: e.previous, World: e.World})
	e.previous = obs.Position
	return msg
}

func (e *Environment) Score(t Trajectory, outcome Outcome) float64 {
	return e.Rubric.Score(t, outcome)
}

func (e *Environment) SystemPrompt() string {
	return e.currentPrompt
}

// EvolveSystemPrompt appends lessons to the base prompt, replacing any
// earlier guidance block.
func (e *Environment) EvolveSystemPrompt(lessons string) string {
	e.currentPrompt = e.basePrompt + EvolutionBlock(lessons)
	return e.currentPrompt
}
