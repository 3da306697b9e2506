package engine

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"

	"frozenlake-rl/internal/storage"
	"frozenlake-rl/pkg/logger"
)

const (
	qAlpha     = 0.1
	qGamma     = 0.9
	qPrecision = 1e4
)

// QTable is the persistent tabular action-value store keyed by
// Position.Key(). Every update is written through to the backend.
type QTable struct {
	backend storage.Backend
	log     *logger.Logger
	data    map[string]map[Action]float64
}

// NewQTable loads whatever the backend holds. A missing or unreadable
// document leaves the table empty and logs a warning.
func NewQTable(backend storage.Backend, log *logger.Logger) *QTable {
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}
	if log == nil {
		log = logger.NewComponentLogger("qtable")
	}
	q := &QTable{backend: backend, log: log, data: make(map[string]map[Action]float64)}
	q.load()
	return q
}

func (q *QTable) load() {
	raw, err := q.backend.Load()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			q.log.WarnWithIntention(logger.IntentionMemory, "could not read q-table, starting fresh", "location", q.backend.Location(), "error", err)
		}
		return
	}
	var decoded map[string]map[string]float64
	if err := json.Unmarshal(raw, &decoded); err != nil {
		q.log.WarnWithIntention(logger.IntentionMemory, "corrupt q-table, starting fresh", "location", q.backend.Location(), "error", err)
		return
	}
	for key, actions := range decoded {
		row := make(map[Action]float64, len(actions))
		for label, value := range actions {
			if a, ok := ParseAction(label); ok {
				row[a] = value
			}
		}
		q.data[key] = row
	}
	q.log.DebugWithIntention(logger.IntentionMemory, "q-table loaded", "states", len(q.data), "location", q.backend.Location())
}

func (q *QTable) save() error {
	payload, err := json.MarshalIndent(q.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode q-table")
	}
	if err := q.backend.Save(payload); err != nil {
		q.log.WarnWithIntention(logger.IntentionMemory, "could not persist q-table", "location", q.backend.Location(), "error", err)
		return errors.Wrap(err, "persist q-table")
	}
	return nil
}

func (q *QTable) get(state Position, action Action) float64 {
	return q.data[state.Key()][action]
}

func (q *QTable) set(state Position, action Action, value float64) {
	key := state.Key()
	row, ok := q.data[key]
	if !ok {
		row = make(map[Action]float64, len(Actions))
		q.data[key] = row
	}
	row[action] = value
}

func (q *QTable) maxValue(state Position) float64 {
	best := math.Inf(-1)
	for _, a := range Actions {
		if v := q.get(state, a); v > best {
			best = v
		}
	}
	return best
}

// GetQValues returns all four actions, defaulting unseen pairs to 0.
func (q *QTable) GetQValues(state Position) map[Action]float64 {
	values := make(map[Action]float64, len(Actions))
	for _, a := range Actions {
		values[a] = q.get(state, a)
	}
	return values
}

// UpdateStep applies Q(s,a) += α(r + γ·max Q(s',·) − Q(s,a)) with the
// future term forced to zero when done. Labels outside the action
// vocabulary are ignored. The new value is rounded to four decimals before
// it is stored and persisted. A persistence failure is returned, but the
// in-memory update stands.
func (q *QTable) UpdateStep(state Position, action string, reward float64, next Position, done bool) error {
	a, ok := ParseAction(action)
	if !ok {
		return nil
	}
	current := q.get(state, a)
	var nextValue float64
	if !done {
		nextValue = q.maxValue(next)
	}
	target := reward + qGamma*nextValue
	updated := current + qAlpha*(target-current)
	q.set(state, a, roundQ(updated))
	return q.save()
}

// BestAction picks the highest valued action, first in Actions order on ties.
func (q *QTable) BestAction(state Position) (Action, float64) {
	best := Actions[0]
	bestValue := q.get(state, best)
	for _, a := range Actions[1:] {
		if v := q.get(state, a); v > bestValue {
			best, bestValue = a, v
		}
	}
	return best, bestValue
}

// States lists stored state keys in sorted order.
func (q *QTable) States() []string {
	keys := make([]string, 0, len(q.data))
	for k := range q.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (q *QTable) Len() int { return len(q.data) }

// StateValues builds a rows x cols grid of max action values.
func (q *QTable) StateValues(rows, cols int) ValueMap {
	values := make(ValueMap, rows)
	for r := 0; r < rows; r++ {
		values[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			values[r][c] = q.maxValue(Position{Row: r, Col: c})
		}
	}
	return values
}

func roundQ(v float64) float64 {
	return math.Round(v*qPrecision) / qPrecision
}
