package engine

import (
	"fmt"
	"strings"
)

// ValueMap is a rows x cols grid of state values.
type ValueMap [][]float64

// Format renders the map with holes and the goal marked, one row per line.
func (v ValueMap) Format(world *GridWorld) string {
	var b strings.Builder
	b.WriteString("value table:\n")
	for r, row := range v {
		for c, value := range row {
			if world != nil {
				switch world.TileAt(Position{Row: r, Col: c}) {
				case TileHole:
					b.WriteString("     H ")
					continue
				case TileGoal:
					b.WriteString("     G ")
					continue
				}
			}
			fmt.Fprintf(&b, "%6.2f ", value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// visitCounts tallies how often each cell was occupied in an episode.
type visitCounts struct {
	rows, cols int
	counts     map[Position]int
}

func newVisitCounts(rows, cols int) *visitCounts {
	return &visitCounts{rows: rows, cols: cols, counts: make(map[Position]int, rows*cols)}
}

func (v *visitCounts) add(p Position) {
	v.counts[p]++
}

func (v *visitCounts) heatmap() string {
	var b strings.Builder
	for r := 0; r < v.rows; r++ {
		for c := 0; c < v.cols; c++ {
			count := v.counts[Position{Row: r, Col: c}]
			if count == 0 {
				b.WriteString("  . ")
			} else {
				fmt.Fprintf(&b, "%3d ", count)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
