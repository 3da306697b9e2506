package engine

import (
	"math"
	"strings"
)

const (
	VerifierReachedGoal    = "reached_goal"
	VerifierFellInHole     = "fell_in_hole"
	VerifierStepEfficiency = "step_efficiency"
	VerifierHitWall        = "hit_wall"
	VerifierDistanceDelta  = "distance_delta"
	VerifierFinalDistance  = "final_distance"
)

const wallBumpMarker = "hit a wall"

var ReachedGoal = VerifierFunc(func(_ Trajectory, outcome Outcome) float64 {
	if outcome == OutcomeGoal {
		return 1
	}
	return 0
})

var FellInHole = VerifierFunc(func(_ Trajectory, outcome Outcome) float64 {
	if outcome == OutcomeHole {
		return -1
	}
	return 0
})

// StepEfficiency pays 1/(steps+1) on success only.
var StepEfficiency = VerifierFunc(func(t Trajectory, outcome Outcome) float64 {
	if outcome != OutcomeGoal {
		return 0
	}
	return 1 / float64(len(t)+1)
})

// HitWall charges -1 for every step whose feedback reports a wall bump.
var HitWall = VerifierFunc(func(t Trajectory, _ Outcome) float64 {
	penalty := 0.0
	for _, step := range t {
		if strings.Contains(strings.ToLower(step.Feedback), wallBumpMarker) {
			penalty--
		}
	}
	return penalty
})

// DistanceDelta adds +0.5 for each step that shortened the Manhattan
// distance to Goal and -0.5 for each that lengthened it.
//
// Steps without a position are skipped and do not move the baseline, so
// the next positioned step is compared against the last known position.
type DistanceDelta struct {
	Start Position
	Goal  Position
}

func (d DistanceDelta) Score(t Trajectory, _ Outcome) float64 {
	total := 0.0
	previous := d.Start
	for _, step := range t {
		current, ok := step.PositionOf()
		if !ok {
			continue
		}
		before := Manhattan(previous, d.Goal)
		after := Manhattan(current, d.Goal)
		switch {
		case after < before:
			total += 0.5
		case after > before:
			total -= 0.5
		}
		previous = current
	}
	return total
}

// FinalDistance scores how close the last known position ended to Goal,
// 1 at the goal falling linearly to 0 at MaxDistance.
type FinalDistance struct {
	Goal        Position
	MaxDistance int
}

func (f FinalDistance) Score(t Trajectory, _ Outcome) float64 {
	if f.MaxDistance <= 0 {
		return 0
	}
	for i := len(t) - 1; i >= 0; i-- {
		p, ok := t[i].PositionOf()
		if !ok {
			continue
		}
		d := float64(Manhattan(p, f.Goal))
		return math.Max(0, 1-d/float64(f.MaxDistance))
	}
	return 0
}
