package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"frozenlake-rl/internal/storage"
	"frozenlake-rl/pkg/logger"
)

const (
	DefaultTopK = 5
	// StepCost is the fitness charge per step taken.
	StepCost = 0.05
	// NoLessons is returned by Lessons while the buffer is empty.
	NoLessons = "No previous strategies recorded."
)

// EpisodeRecord is one retained episode with its ranking summary.
type EpisodeRecord struct {
	ID           string     `json:"id"`
	Trajectory   Trajectory `json:"trajectory"`
	Score        float64    `json:"score"`
	Steps        int        `json:"steps"`
	Fitness      float64    `json:"fitness"`
	FinalOutcome Outcome    `json:"final_outcome"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Fitness ranks episodes for retention: score minus a per-step charge.
func Fitness(score float64, steps int) float64 {
	return score - StepCost*float64(steps)
}

// TrajectoryMemory keeps the K fittest episodes, best first, and rewrites
// its backend document after every admission.
type TrajectoryMemory struct {
	backend  storage.Backend
	log      *logger.Logger
	k        int
	episodes []EpisodeRecord
	now      func() time.Time
}

func NewTrajectoryMemory(backend storage.Backend, k int, log *logger.Logger) *TrajectoryMemory {
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}
	if log == nil {
		log = logger.NewComponentLogger("memory")
	}
	if k <= 0 {
		k = DefaultTopK
	}
	m := &TrajectoryMemory{backend: backend, log: log, k: k, now: time.Now}
	m.load()
	return m
}

func (m *TrajectoryMemory) load() {
	raw, err := m.backend.Load()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.WarnWithIntention(logger.IntentionMemory, "could not read trajectory memory, starting fresh", "location", m.backend.Location(), "error", err)
		}
		return
	}
	var episodes []EpisodeRecord
	if err := json.Unmarshal(raw, &episodes); err != nil {
		m.log.WarnWithIntention(logger.IntentionMemory, "corrupt trajectory memory, starting fresh", "location", m.backend.Location(), "error", err)
		return
	}
	m.episodes = episodes
	m.rank()
	m.log.DebugWithIntention(logger.IntentionMemory, "trajectory memory loaded", "episodes", len(m.episodes), "location", m.backend.Location())
}

func (m *TrajectoryMemory) save() error {
	payload, err := json.MarshalIndent(m.episodes, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode trajectory memory")
	}
	if err := m.backend.Save(payload); err != nil {
		m.log.WarnWithIntention(logger.IntentionMemory, "could not persist trajectory memory", "location", m.backend.Location(), "error", err)
		return errors.Wrap(err, "persist trajectory memory")
	}
	return nil
}

// rank sorts by fitness, best first, and drops everything past K. Equal
// fitness keeps no guaranteed order.
func (m *TrajectoryMemory) rank() {
	sort.SliceStable(m.episodes, func(i, j int) bool {
		return m.episodes[i].Fitness > m.episodes[j].Fitness
	})
	if len(m.episodes) > m.k {
		m.episodes = m.episodes[:m.k]
	}
}

// AddEpisode scores the episode for retention, admits it and persists. The
// returned record may already have been evicted if it ranked below the
// current K. A persistence error leaves the in-memory buffer updated.
func (m *TrajectoryMemory) AddEpisode(t Trajectory, rawScore float64, stepCount int) (EpisodeRecord, error) {
	record := EpisodeRecord{
		ID:           uuid.NewString(),
		Trajectory:   t.Clone(),
		Score:        rawScore,
		Steps:        stepCount,
		Fitness:      Fitness(rawScore, stepCount),
		FinalOutcome: t.FinalOutcome(),
		CreatedAt:    m.now().UTC(),
	}
	m.episodes = append(m.episodes, record)
	m.rank()
	m.log.DebugWithIntention(logger.IntentionMemory, "episode considered", "id", record.ID, "fitness", record.Fitness, "retained", len(m.episodes))
	return record, m.save()
}

// TopK returns a copy of the buffer, best first.
func (m *TrajectoryMemory) TopK() []EpisodeRecord {
	out := make([]EpisodeRecord, len(m.episodes))
	for i, e := range m.episodes {
		e.Trajectory = e.Trajectory.Clone()
		out[i] = e
	}
	return out
}

func (m *TrajectoryMemory) Len() int { return len(m.episodes) }

func (m *TrajectoryMemory) Capacity() int { return m.k }

// Lessons renders a prompt-ready digest of the retained episodes.
func (m *TrajectoryMemory) Lessons() string {
	if len(m.episodes) == 0 {
		return NoLessons
	}
	var b strings.Builder
	for i, e := range m.episodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. Fitness: %.2f | Outcome: %s | Steps: %d", i+1, e.Fitness, e.FinalOutcome, e.Steps)
		if path := actionPath(e.Trajectory); path != "" {
			fmt.Fprintf(&b, " | Actions: %s", path)
		}
	}
	return b.String()
}

func actionPath(t Trajectory) string {
	actions := make([]string, 0, len(t))
	for _, s := range t {
		actions = append(actions, s.Action)
	}
	return strings.Join(actions, " -> ")
}
