package logger

// Intention tags a log line with what it is about, independent of level.
// The console handler turns it into a short prefix; file sinks keep it as
// the structured "intention" attribute.
type Intention string

const (
	IntentionEpisode Intention = "episode"
	IntentionStep    Intention = "step"
	IntentionMemory  Intention = "memory"
	IntentionReward  Intention = "reward"
	IntentionAgent   Intention = "agent"
	IntentionStatus  Intention = "status"
	IntentionConfig  Intention = "config"
	IntentionSuccess Intention = "success"
	IntentionDebug   Intention = "debug"
	IntentionWarning Intention = "warning" // level carries the emphasis
	IntentionError   Intention = "error"   // level carries the emphasis
)

func prefixFor(i Intention) string {
	switch i {
	case IntentionEpisode:
		return "[episode]"
	case IntentionStep:
		return "  >"
	case IntentionMemory:
		return "[memory]"
	case IntentionReward:
		return "[reward]"
	case IntentionAgent:
		return "[agent]"
	case IntentionStatus:
		return "[status]"
	case IntentionConfig:
		return "[config]"
	case IntentionSuccess:
		return "[ok]"
	case IntentionDebug:
		return "[debug]"
	default:
		return ""
	}
}
