package engine

import (
	"strings"
	"testing"
)

func TestXMLParser(t *testing.T) {
	p := NewXMLParser("action")
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"<thought>go</thought><action>RIGHT</action>", "RIGHT", true},
		{"<ACTION> down </ACTION>", "down", true},
		{"<action>\nUP\n</action>", "UP", true},
		{"<action>UP</action><action>DOWN</action>", "", false},
		{"RIGHT", "", false},
		{"<action></action>", "", false},
	}
	for _, tc := range cases {
		got, ok := p.Parse(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: expected (%q, %v), got (%q, %v)", tc.text, tc.want, tc.ok, got, ok)
		}
	}
}

func TestKeywordParser(t *testing.T) {
	var p KeywordParser
	if got, ok := p.Parse("I will go down, then right"); !ok || got != "DOWN" {
		t.Fatalf("expected DOWN, got %q %v", got, ok)
	}
	if _, ok := p.Parse("upward and downhill"); ok {
		t.Fatalf("expected whole words only")
	}
}

func TestFormatReward(t *testing.T) {
	p := NewXMLParser("action")
	if FormatReward(p, "<action>UP</action>") != 1 || FormatReward(p, "UP") != 0 {
		t.Fatalf("unexpected format reward")
	}
}

func TestCausalFeedback(t *testing.T) {
	env, err := LoadCausalEnvironment(DefaultMap)
	if err != nil {
		t.Fatal(err)
	}
	env.Reset()

	wall := env.Feedback(env.Step("UP"))
	if !strings.Contains(wall, "CAUTION: Action had no effect") {
		t.Fatalf("expected wasted-step caution, got %q", wall)
	}

	closer := env.Feedback(env.Step("RIGHT"))
	if !strings.Contains(closer, "Good. You moved CLOSER to the goal.") {
		t.Fatalf("expected closer analysis, got %q", closer)
	}
	if !strings.Contains(closer, "Warning: 1 hole(s) adjacent.") {
		t.Fatalf("expected adjacent hole warning at (0, 1), got %q", closer)
	}

	away := env.Feedback(env.Step("LEFT"))
	if !strings.Contains(away, "Bad. You moved AWAY from the goal.") {
		t.Fatalf("expected away analysis, got %q", away)
	}

	env.Reset()
	if safe := env.Feedback(env.Step("DOWN")); strings.Contains(safe, "CRITICAL") {
		t.Fatalf("(1, 0) is safe, got %q", safe)
	}
	fatal := env.Feedback(env.Step("RIGHT"))
	if !strings.Contains(fatal, "CRITICAL FAILURE") {
		t.Fatalf("expected hole failure, got %q", fatal)
	}
}

func TestPlainFeedback(t *testing.T) {
	if got := PlainFeedback.Format(Observation{}, FeedbackContext{}); got != "Unknown state." {
		t.Fatalf("unexpected %q", got)
	}
	if got := PlainFeedback.Format(Observation{Message: "hi"}, FeedbackContext{}); got != "hi" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestEnvironmentDefaults(t *testing.T) {
	env, err := LoadEnvironment(DefaultMap)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := env.Parser.(*XMLParser); !ok {
		t.Fatalf("expected XML parser")
	}
	if len(env.Rubric.Names()) != 3 {
		t.Fatalf("expected default rubric")
	}
	if _, err := LoadEnvironment([]string{"FF"}); err == nil {
		t.Fatalf("expected invalid map error")
	}
}

func TestEvolveSystemPromptReplacesGuidance(t *testing.T) {
	env, err := LoadEnvironment(DefaultMap)
	if err != nil {
		t.Fatal(err)
	}
	base := env.SystemPrompt()
	if !strings.Contains(base, "DANGER: Do NOT go to (1, 1).") || !strings.Contains(base, "Goal is at (3, 3).") {
		t.Fatalf("base prompt misses the layout: %q", base)
	}

	env.EvolveSystemPrompt("first lesson")
	second := env.EvolveSystemPrompt("second lesson")
	if strings.Contains(second, "first lesson") {
		t.Fatalf("expected earlier guidance to be replaced")
	}
	if !strings.HasPrefix(second, base) || !strings.Contains(second, "second lesson") {
		t.Fatalf("unexpected evolved prompt %q", second)
	}
	if strings.Count(second, "EVOLVED STRATEGY GUIDANCE") != 1 {
		t.Fatalf("expected a single guidance block")
	}
}

func TestFormatQValueHints(t *testing.T) {
	hints := FormatQValueHints(map[Action]float64{ActionUp: -0.8, ActionDown: 0.2, ActionLeft: 0, ActionRight: 0.9})
	lines := strings.Split(strings.TrimSpace(hints), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header plus 4 lines, got %q", hints)
	}
	if lines[1] != "- RIGHT: 0.90 (Recommended)" || lines[4] != "- UP: -0.80 (Avoid)" {
		t.Fatalf("unexpected hints %q", hints)
	}
	if FormatQValueHints(nil) != "" {
		t.Fatalf("expected empty hints for no values")
	}
}

func TestFormatRecalledMemories(t *testing.T) {
	if FormatRecalledMemories(nil) != "" {
		t.Fatalf("expected empty block")
	}
	block := FormatRecalledMemories([]EpisodeRecord{{
		Fitness:      0.9,
		FinalOutcome: OutcomeGoal,
		Trajectory:   Trajectory{{Context: "Game started. Good luck!", Action: "RIGHT", Feedback: "You moved RIGHT."}},
	}})
	for _, want := range []string{"--- Example Episode (Fitness: 0.90) ---", "Action: RIGHT", "Final Outcome: goal"} {
		if !strings.Contains(block, want) {
			t.Fatalf("expected %q in %q", want, block)
		}
	}
}
