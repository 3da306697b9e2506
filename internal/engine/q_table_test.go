package engine

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"frozenlake-rl/internal/storage"
	"frozenlake-rl/pkg/logger"
)

func TestQTableDefaultsToZero(t *testing.T) {
	q := NewQTable(storage.NewMemoryBackend(), logger.Discard())
	values := q.GetQValues(Position{2, 2})
	if len(values) != len(Actions) {
		t.Fatalf("expected %d actions, got %d", len(Actions), len(values))
	}
	for a, v := range values {
		if v != 0 {
			t.Fatalf("expected 0 for %s, got %v", a, v)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("reading must not create entries")
	}
}

func TestQTableUpdateStep(t *testing.T) {
	backend := storage.NewMemoryBackend()
	q := NewQTable(backend, logger.Discard())

	if err := q.UpdateStep(Position{0, 0}, "RIGHT", 0.1, Position{0, 1}, false); err != nil {
		t.Fatal(err)
	}
	if got := q.GetQValues(Position{0, 0})[ActionRight]; got != 0.01 {
		t.Fatalf("expected 0.01, got %v", got)
	}
	if backend.Saves() != 1 {
		t.Fatalf("expected write-through, got %d saves", backend.Saves())
	}

	// seed a future value, then check terminal updates ignore it
	if err := q.UpdateStep(Position{0, 1}, "down", 1, Position{1, 1}, true); err != nil {
		t.Fatal(err)
	}
	if err := q.UpdateStep(Position{0, 0}, "RIGHT", 0, Position{0, 1}, true); err != nil {
		t.Fatal(err)
	}
	if got := q.GetQValues(Position{0, 0})[ActionRight]; got != 0.009 {
		t.Fatalf("expected done to drop the future term, got %v", got)
	}
}

func TestQTableRoundsToFourDecimals(t *testing.T) {
	q := NewQTable(storage.NewMemoryBackend(), logger.Discard())
	if err := q.UpdateStep(Position{0, 0}, "UP", 0.12345, Position{0, 0}, true); err != nil {
		t.Fatal(err)
	}
	if got := q.GetQValues(Position{0, 0})[ActionUp]; got != 0.0123 {
		t.Fatalf("expected 0.0123, got %v", got)
	}
}

func TestQTableIgnoresUnknownAction(t *testing.T) {
	backend := storage.NewMemoryBackend()
	q := NewQTable(backend, logger.Discard())
	if err := q.UpdateStep(Position{0, 0}, "JUMP", 1, Position{0, 0}, false); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 0 || backend.Saves() != 0 {
		t.Fatalf("expected unknown action to be a no-op")
	}
}

func TestQTablePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q_table.json")
	first := NewQTable(storage.NewFileBackend(path), logger.Discard())
	if err := first.UpdateStep(Position{1, 2}, "LEFT", 1, Position{1, 1}, true); err != nil {
		t.Fatal(err)
	}

	second := NewQTable(storage.NewFileBackend(path), logger.Discard())
	if got := second.GetQValues(Position{1, 2})[ActionLeft]; got != 0.1 {
		t.Fatalf("expected reloaded 0.1, got %v", got)
	}
	if keys := second.States(); len(keys) != 1 || keys[0] != "(1, 2)" {
		t.Fatalf("unexpected states %v", keys)
	}
}

func TestQTableDocumentFormat(t *testing.T) {
	backend := storage.NewMemoryBackend()
	q := NewQTable(backend, logger.Discard())
	if err := q.UpdateStep(Position{0, 0}, "RIGHT", 1, Position{0, 1}, true); err != nil {
		t.Fatal(err)
	}
	raw, err := backend.Load()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]map[string]float64
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("expected a JSON object, got %s", raw)
	}
	if doc["(0, 0)"]["RIGHT"] != 0.1 {
		t.Fatalf("unexpected document %s", raw)
	}
}

func TestQTableCorruptDocumentStartsEmpty(t *testing.T) {
	q := NewQTable(storage.NewMemoryBackendWith([]byte("{not json")), logger.Discard())
	if q.Len() != 0 {
		t.Fatalf("expected empty table, got %d states", q.Len())
	}
}

func TestQTableSaveFailureKeepsValue(t *testing.T) {
	backend := storage.NewMemoryBackend()
	boom := errors.New("disk full")
	backend.FailWith(boom)
	q := NewQTable(backend, logger.Discard())

	err := q.UpdateStep(Position{0, 0}, "DOWN", 1, Position{1, 0}, true)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if got := q.GetQValues(Position{0, 0})[ActionDown]; got != 0.1 {
		t.Fatalf("expected in-memory update to stand, got %v", got)
	}
}

func TestQTableBestActionAndStateValues(t *testing.T) {
	q := NewQTable(storage.NewMemoryBackend(), logger.Discard())
	if err := q.UpdateStep(Position{0, 0}, "RIGHT", 1, Position{0, 1}, true); err != nil {
		t.Fatal(err)
	}
	if err := q.UpdateStep(Position{0, 0}, "DOWN", -1, Position{1, 0}, true); err != nil {
		t.Fatal(err)
	}
	best, value := q.BestAction(Position{0, 0})
	if best != ActionRight || value != 0.1 {
		t.Fatalf("expected RIGHT 0.1, got %s %v", best, value)
	}
	values := q.StateValues(2, 2)
	if values[0][0] != 0.1 || values[1][1] != 0 {
		t.Fatalf("unexpected state values %v", values)
	}
}
