package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleLineCarriesPrefixAndPairs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(LogLevelInfo, &buf).WithComponent("memory")

	log.InfoWithIntention(IntentionMemory, "episode admitted", "fitness", 1.5)

	got := strings.TrimSpace(buf.String())
	if got != "[memory] episode admitted fitness=1.5" {
		t.Fatalf("unexpected console line %q", got)
	}
}

func TestConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(LogLevelWarn, &buf)

	log.InfoWithIntention(IntentionStep, "hidden")
	log.Warn("could not load memory", "path", "memory.json")

	got := strings.TrimSpace(buf.String())
	if got != "warn: could not load memory path=memory.json" {
		t.Fatalf("unexpected console output %q", got)
	}
}

func TestFileSinkReceivesStructuredRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "frozenlake.log")
	var console bytes.Buffer
	log := NewLoggerWithFile(LogLevelInfo, &console, path)

	log.InfoWithIntention(IntentionEpisode, "episode complete", "outcome", "goal")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file, got %v", err)
	}
	if !strings.Contains(string(data), "intention=episode") || !strings.Contains(string(data), "outcome=goal") {
		t.Fatalf("expected structured attributes in file log, got %q", string(data))
	}
	if !strings.Contains(console.String(), "[episode] episode complete") {
		t.Fatalf("expected console line, got %q", console.String())
	}
}

func TestErrorWithIntentionUsesLevelPrefix(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(LogLevelError, &buf)

	log.WarnWithIntention(IntentionStatus, "hidden")
	log.ErrorWithIntention(IntentionStatus, "training failed", "episodes", 2)

	got := strings.TrimSpace(buf.String())
	if got != "error: training failed episodes=2" {
		t.Fatalf("unexpected console output %q", got)
	}
}

func TestCloseReleasesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frozenlake.log")
	log := NewLoggerWithFile(LogLevelInfo, io.Discard, path)
	derived := log.WithComponent("trainer")

	derived.InfoWithIntention(IntentionEpisode, "before close")
	if err := derived.Close(); err != nil {
		t.Fatalf("expected derived logger close to be a no-op, got %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("expected second close to be a no-op, got %v", err)
	}
	derived.InfoWithIntention(IntentionEpisode, "after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file, got %v", err)
	}
	if !strings.Contains(string(data), "before close") || strings.Contains(string(data), "after close") {
		t.Fatalf("expected only records written before close, got %q", string(data))
	}
}

func TestCloseWithoutFile(t *testing.T) {
	if err := NewLoggerWithWriter(LogLevelInfo, nil).Close(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
