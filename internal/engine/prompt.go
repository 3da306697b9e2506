package engine

import (
	"fmt"
	"sort"
	"strings"
)

// BaseSystemPrompt describes the layout, coordinates and output contract
// for the given world.
func BaseSystemPrompt(world *GridWorld) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an RL agent playing FrozenLake %dx%d.\n", world.Rows(), world.Cols())
	b.WriteString("Your goal is to reach the Goal (G) from the Start (S) without falling into Holes (H).\n\n")
	b.WriteString("THE MAP LAYOUT (Use coordinates):\n")
	for r, line := range world.Layout() {
		cells := make([]string, 0, len(line))
		for _, ch := range line {
			switch ch {
			case 'S':
				cells = append(cells, "S (Start)")
			case 'H':
				cells = append(cells, "H (Hole!)")
			case 'G':
				cells = append(cells, "G (Goal)")
			default:
				cells = append(cells, string(ch))
			}
		}
		fmt.Fprintf(&b, "- Row %d: %s\n", r, strings.Join(cells, ", "))
	}
	b.WriteString("\nCOORDINATE LOGIC:\n")
	fmt.Fprintf(&b, "- You start at (%d, %d).\n", world.Start().Row, world.Start().Col)
	fmt.Fprintf(&b, "- Goal is at (%d, %d).\n", world.Goal().Row, world.Goal().Col)
	for _, h := range world.Holes() {
		fmt.Fprintf(&b, "- DANGER: Do NOT go to (%d, %d). That is a HOLE.\n", h.Row, h.Col)
	}
	b.WriteString("\nOutput instructions:\n")
	b.WriteString("1. First, PLAN your move inside <thought> tags and check adjacent tiles for holes.\n")
	b.WriteString("2. Return exactly one action tag: <action>LEFT</action>, <action>RIGHT</action>, <action>UP</action>, or <action>DOWN</action>.\n")
	b.WriteString("3. Do NOT output a list of actions.\n")
	return b.String()
}

// EvolutionBlock wraps memory lessons as strategy guidance for the system prompt.
func EvolutionBlock(lessons string) string {
	return "\n\n--- EVOLVED STRATEGY GUIDANCE ---\n" +
		"Based on previous successful survivors, adhere to these successful patterns:\n" +
		lessons +
		"\n---------------------------------\n"
}

// FormatEpisodeForPrompt renders one retained episode as an in-context example.
func FormatEpisodeForPrompt(e EpisodeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Example Episode (Fitness: %.2f) ---\n", e.Fitness)
	for _, s := range e.Trajectory {
		fmt.Fprintf(&b, "Observation: %s\n", s.Context)
		fmt.Fprintf(&b, "Action: %s\n", s.Action)
		fmt.Fprintf(&b, "Result: %s\n", s.Feedback)
	}
	fmt.Fprintf(&b, "Final Outcome: %s", e.FinalOutcome)
	return b.String()
}

// FormatRecalledMemories joins episodes into the block prepended to the
// first prompt of an episode. Empty input yields "".
func FormatRecalledMemories(episodes []EpisodeRecord) string {
	if len(episodes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n=== SUCCESSFULLY RECALLED MEMORIES ===\n")
	for _, e := range episodes {
		b.WriteString(FormatEpisodeForPrompt(e))
		b.WriteByte('\n')
	}
	b.WriteString("======================================\n")
	return b.String()
}

// FormatQValueHints lists action values best first, flagging strong ones.
func FormatQValueHints(values map[Action]float64) string {
	if len(values) == 0 {
		return ""
	}
	actions := make([]Action, 0, len(values))
	for a := range values {
		actions = append(actions, a)
	}
	sort.SliceStable(actions, func(i, j int) bool {
		if values[actions[i]] == values[actions[j]] {
			return actions[i] < actions[j]
		}
		return values[actions[i]] > values[actions[j]]
	})
	var b strings.Builder
	b.WriteString("MEMORY (Action History Scores for Current Position):\n")
	for _, a := range actions {
		v := values[a]
		var note string
		switch {
		case v > 0.5:
			note = " (Recommended)"
		case v < -0.5:
			note = " (Avoid)"
		}
		fmt.Fprintf(&b, "- %s: %.2f%s\n", a, v, note)
	}
	return b.String()
}
