package engine

// StepRecord is one recorded transition. Position and Reward are nil when
// the step produced none, e.g. an unparseable agent reply.
type StepRecord struct {
	Context  string    `json:"state_msg"`
	Response string    `json:"response,omitempty"`
	Action   string    `json:"action"`
	Outcome  Outcome   `json:"outcome"`
	Feedback string    `json:"outcome_msg"`
	Reward   *float64  `json:"reward,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// InvalidAction labels steps whose reply carried no parseable action.
const InvalidAction = "INVALID"

// PositionOf returns the recorded position, if any.
func (s StepRecord) PositionOf() (Position, bool) {
	if s.Position == nil {
		return Position{}, false
	}
	return *s.Position, true
}

// RewardOf returns the per-step reward, if any.
func (s StepRecord) RewardOf() (float64, bool) {
	if s.Reward == nil {
		return 0, false
	}
	return *s.Reward, true
}

// WithPosition returns a copy carrying p.
func (s StepRecord) WithPosition(p Position) StepRecord {
	s.Position = &p
	return s
}

// WithReward returns a copy carrying r.
func (s StepRecord) WithReward(r float64) StepRecord {
	s.Reward = &r
	return s
}

type Trajectory []StepRecord

// FinalOutcome is the outcome of the last step, Ongoing when empty.
func (t Trajectory) FinalOutcome() Outcome {
	if len(t) == 0 {
		return OutcomeOngoing
	}
	return t[len(t)-1].Outcome
}

// Clone copies the records and their optional fields.
func (t Trajectory) Clone() Trajectory {
	if t == nil {
		return nil
	}
	out := make(Trajectory, len(t))
	for i, s := range t {
		if s.Position != nil {
			p := *s.Position
			s.Position = &p
		}
		if s.Reward != nil {
			r := *s.Reward
			s.Reward = &r
		}
		out[i] = s
	}
	return out
}
