package engine

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidMap is wrapped by every layout validation failure.
var ErrInvalidMap = errors.New("invalid grid map")

// DefaultMap is the canonical 4x4 FrozenLake layout.
var DefaultMap = []string{
	"SFFF",
	"FHFF",
	"FFFH",
	"HFFG",
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Key is the canonical string form used by the Q store, e.g. "(0, 1)".
func (p Position) Key() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Col)
}

func (p Position) String() string { return p.Key() }

func (p Position) add(d delta) Position {
	return Position{Row: p.Row + d.row, Col: p.Col + d.col}
}

type Tile int

const (
	TileFrozen Tile = iota
	TileStart
	TileHole
	TileGoal
)

func (t Tile) String() string {
	switch t {
	case TileStart:
		return "S"
	case TileHole:
		return "H"
	case TileGoal:
		return "G"
	default:
		return "F"
	}
}

func (t Tile) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tile) UnmarshalText(b []byte) error {
	text := strings.TrimSpace(string(b))
	if len(text) != 1 {
		return errors.Errorf("unknown tile %q", string(b))
	}
	tile, ok := tileFromRune(rune(text[0]))
	if !ok {
		return errors.Errorf("unknown tile %q", string(b))
	}
	*t = tile
	return nil
}

func tileFromRune(r rune) (Tile, bool) {
	switch r {
	case 'S':
		return TileStart, true
	case 'F':
		return TileFrozen, true
	case 'H':
		return TileHole, true
	case 'G':
		return TileGoal, true
	}
	return TileFrozen, false
}

type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeHole
	OutcomeGoal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHole:
		return "hole"
	case OutcomeGoal:
		return "goal"
	default:
		return "ongoing"
	}
}

// Terminal reports whether the episode has ended.
func (o Outcome) Terminal() bool {
	return o == OutcomeHole || o == OutcomeGoal
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "ongoing", "":
		*o = OutcomeOngoing
	case "hole":
		*o = OutcomeHole
	case "goal":
		*o = OutcomeGoal
	default:
		return errors.Errorf("unknown outcome %q", string(b))
	}
	return nil
}

type Action string

const (
	ActionLeft  Action = "LEFT"
	ActionRight Action = "RIGHT"
	ActionUp    Action = "UP"
	ActionDown  Action = "DOWN"
)

// Actions lists the canonical labels in a fixed order.
var Actions = []Action{ActionUp, ActionDown, ActionLeft, ActionRight}

type delta struct {
	row int
	col int
}

var actionDeltas = map[Action]delta{
	ActionLeft:  {row: 0, col: -1},
	ActionRight: {row: 0, col: 1},
	ActionUp:    {row: -1, col: 0},
	ActionDown:  {row: 1, col: 0},
}

// ParseAction normalises a label case-insensitively.
func ParseAction(label string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(label)))
	_, ok := actionDeltas[a]
	return a, ok
}

type Observation struct {
	Position     Position `json:"position"`
	GoalPosition Position `json:"goal_position"`
	Tile         Tile     `json:"tile"`
	Terminated   bool     `json:"terminated"`
	Outcome      Outcome  `json:"outcome"`
	Message      string   `json:"message"`
}

// GridWorld is the deterministic FrozenLake state machine. It never resets
// itself: once an episode is terminal every Step is a no-op until Reset.
type GridWorld struct {
	rows, cols int
	layout     []string
	tiles      [][]Tile
	start      Position
	goal       Position
	pos        Position
	terminated bool
	outcome    Outcome
}

func NewGridWorld(layout []string) (*GridWorld, error) {
	if len(layout) == 0 {
		return nil, errors.Wrap(ErrInvalidMap, "layout has no rows")
	}
	cols := len(layout[0])
	if cols == 0 {
		return nil, errors.Wrap(ErrInvalidMap, "layout has empty rows")
	}
	tiles := make([][]Tile, len(layout))
	var starts, goals []Position
	for r, line := range layout {
		if len(line) != cols {
			return nil, errors.Wrapf(ErrInvalidMap, "row %d has length %d, expected %d", r, len(line), cols)
		}
		tiles[r] = make([]Tile, cols)
		for c, ch := range line {
			tile, ok := tileFromRune(ch)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidMap, "unknown tile %q at (%d, %d)", ch, r, c)
			}
			tiles[r][c] = tile
			switch tile {
			case TileStart:
				starts = append(starts, Position{Row: r, Col: c})
			case TileGoal:
				goals = append(goals, Position{Row: r, Col: c})
			}
		}
	}
	if len(starts) != 1 {
		return nil, errors.Wrapf(ErrInvalidMap, "expected exactly one start tile, found %d", len(starts))
	}
	if len(goals) != 1 {
		return nil, errors.Wrapf(ErrInvalidMap, "expected exactly one goal tile, found %d", len(goals))
	}
	g := &GridWorld{
		rows:   len(layout),
		cols:   cols,
		layout: append([]string(nil), layout...),
		tiles:  tiles,
		start:  starts[0],
		goal:   goals[0],
	}
	g.Reset()
	return g, nil
}

func (g *GridWorld) Reset() Observation {
	g.pos = g.start
	g.terminated = false
	g.outcome = OutcomeOngoing
	return g.observe("Game started. Good luck!")
}

func (g *GridWorld) Step(label string) Observation {
	if g.terminated {
		return g.observe("Game is already over. Please reset.")
	}
	action, ok := ParseAction(label)
	if !ok {
		return g.observe(fmt.Sprintf("Invalid action: %s. Please choose LEFT, RIGHT, UP, or DOWN.", strings.ToUpper(strings.TrimSpace(label))))
	}

	var move string
	candidate := g.pos.add(actionDeltas[action])
	if g.InBounds(candidate) {
		g.pos = candidate
		move = fmt.Sprintf("You moved %s.", action)
	} else {
		move = fmt.Sprintf("You tried to move %s but hit a wall.", action)
	}

	tile := g.TileAt(g.pos)
	switch tile {
	case TileHole:
		g.terminated = true
		g.outcome = OutcomeHole
		return g.observe(move + " You fell into a hole. Game over.")
	case TileGoal:
		g.terminated = true
		g.outcome = OutcomeGoal
		return g.observe(move + " You reached the goal! Success.")
	default:
		g.outcome = OutcomeOngoing
		return g.observe(fmt.Sprintf("%s Current tile: %s.", move, tile))
	}
}

func (g *GridWorld) observe(message string) Observation {
	return Observation{
		Position:     g.pos,
		GoalPosition: g.goal,
		Tile:         g.TileAt(g.pos),
		Terminated:   g.terminated,
		Outcome:      g.outcome,
		Message:      message,
	}
}

func (g *GridWorld) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

// TileAt returns Frozen for positions outside the grid.
func (g *GridWorld) TileAt(p Position) Tile {
	if !g.InBounds(p) {
		return TileFrozen
	}
	return g.tiles[p.Row][p.Col]
}

func (g *GridWorld) Rows() int          { return g.rows }
func (g *GridWorld) Cols() int          { return g.cols }
func (g *GridWorld) Start() Position    { return g.start }
func (g *GridWorld) Goal() Position     { return g.goal }
func (g *GridWorld) Position() Position { return g.pos }
func (g *GridWorld) Terminated() bool   { return g.terminated }
func (g *GridWorld) Outcome() Outcome   { return g.outcome }
func (g *GridWorld) Layout() []string   { return append([]string(nil), g.layout...) }

// Holes lists hole coordinates in row-major order.
func (g *GridWorld) Holes() []Position {
	var holes []Position
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if g.tiles[r][c] == TileHole {
				holes = append(holes, Position{Row: r, Col: c})
			}
		}
	}
	return holes
}

// Render draws the layout with the agent marked as A.
func (g *GridWorld) Render() string {
	var b strings.Builder
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			if g.pos.Row == r && g.pos.Col == c {
				b.WriteByte('A')
				continue
			}
			b.WriteString(g.tiles[r][c].String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
