package engine

// Verifier scores a finished trajectory. Implementations must be pure.
type Verifier interface {
	Score(t Trajectory, outcome Outcome) float64
}

// VerifierFunc adapts a plain function to Verifier.
type VerifierFunc func(t Trajectory, outcome Outcome) float64

func (f VerifierFunc) Score(t Trajectory, outcome Outcome) float64 {
	return f(t, outcome)
}

type weightedVerifier struct {
	name     string
	verifier Verifier
	weight   float64
}

// Rubric is a weighted linear ensemble of verifiers.
type Rubric struct {
	verifiers []weightedVerifier
}

func NewRubric() *Rubric {
	return &Rubric{}
}

func (r *Rubric) AddVerifier(name string, v Verifier, weight float64) *Rubric {
	r.verifiers = append(r.verifiers, weightedVerifier{name: name, verifier: v, weight: weight})
	return r
}

// SetWeight changes the weight of every verifier registered under name and
// reports whether one was found.
func (r *Rubric) SetWeight(name string, weight float64) bool {
	found := false
	for i := range r.verifiers {
		if r.verifiers[i].name == name {
			r.verifiers[i].weight = weight
			found = true
		}
	}
	return found
}

func (r *Rubric) Score(t Trajectory, outcome Outcome) float64 {
	total := 0.0
	for _, wv := range r.verifiers {
		total += wv.weight * wv.verifier.Score(t, outcome)
	}
	return total
}

// Contribution is one verifier's weighted share of a score.
type Contribution struct {
	Name     string
	Raw      float64
	Weight   float64
	Weighted float64
}

// Breakdown returns contributions in registration order.
func (r *Rubric) Breakdown(t Trajectory, outcome Outcome) []Contribution {
	out := make([]Contribution, 0, len(r.verifiers))
	for _, wv := range r.verifiers {
		raw := wv.verifier.Score(t, outcome)
		out = append(out, Contribution{Name: wv.name, Raw: raw, Weight: wv.weight, Weighted: raw * wv.weight})
	}
	return out
}

func (r *Rubric) Names() []string {
	names := make([]string, len(r.verifiers))
	for i, wv := range r.verifiers {
		names[i] = wv.name
	}
	return names
}

// NewDefaultRubric rewards the outcome and, on success, brevity.
func NewDefaultRubric() *Rubric {
	return NewRubric().
		AddVerifier(VerifierReachedGoal, ReachedGoal, 1).
		AddVerifier(VerifierFellInHole, FellInHole, 1).
		AddVerifier(VerifierStepEfficiency, StepEfficiency, 1)
}

// NewCausalRubric weights the goal double and shapes every step by wall
// bumps and distance progress.
func NewCausalRubric(start, goal Position) *Rubric {
	return NewRubric().
		AddVerifier(VerifierReachedGoal, ReachedGoal, 2).
		AddVerifier(VerifierFellInHole, FellInHole, 1).
		AddVerifier(VerifierHitWall, HitWall, 1).
		AddVerifier(VerifierDistanceDelta, DistanceDelta{Start: start, Goal: goal}, 1)
}
