package engine

import (
	"fmt"
	"strings"
)

// FeedbackContext is what a formatter may know besides the observation.
type FeedbackContext struct {
	Previous Position
	World    *GridWorld
}

// FeedbackFormatter turns an observation into the text shown to the agent.
type FeedbackFormatter interface {
	Format(obs Observation, ctx FeedbackContext) string
}

type FeedbackFunc func(obs Observation, ctx FeedbackContext) string

func (f FeedbackFunc) Format(obs Observation, ctx FeedbackContext) string {
	return f(obs, ctx)
}

// PlainFeedback repeats the world message.
var PlainFeedback = FeedbackFunc(func(obs Observation, _ FeedbackContext) string {
	if obs.Message == "" {
		return "Unknown state."
	}
	return obs.Message
})

// CausalFeedback explains the consequence of the last move: fatal, solved,
// wasted, or whether it closed the distance to the goal.
var CausalFeedback = FeedbackFunc(func(obs Observation, ctx FeedbackContext) string {
	switch obs.Outcome {
	case OutcomeHole:
		return obs.Message + " CRITICAL FAILURE: You stepped onto a Hole. This strategy is fatal."
	case OutcomeGoal:
		return obs.Message + " SUCCESS: You reached the goal."
	}
	if obs.Position == ctx.Previous {
		return obs.Message + " CAUTION: Action had no effect (hit wall?). Wasted step."
	}

	before := Manhattan(ctx.Previous, obs.GoalPosition)
	after := Manhattan(obs.Position, obs.GoalPosition)
	var analysis string
	switch {
	case after < before:
		analysis = "Good. You moved CLOSER to the goal."
	case after > before:
		analysis = "Bad. You moved AWAY from the goal."
	default:
		analysis = "Neutral move."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Analysis: %s Current tile is Safe. %s", obs.Message, analysis, proximityBand(after).describe())
	if ctx.World != nil {
		if n := adjacentHoles(ctx.World, obs.Position); n > 0 {
			fmt.Fprintf(&b, " Warning: %d hole(s) adjacent.", n)
		}
	}
	return b.String()
})
