package engine

// Manhattan is the grid distance between two positions.
func Manhattan(a, b Position) int {
	return absInt(a.Row-b.Row) + absInt(a.Col-b.Col)
}

type proximity int

const (
	proximityAdjacent proximity = iota
	proximityNear
	proximityFar
)

func proximityBand(distance int) proximity {
	if distance <= 1 {
		return proximityAdjacent
	}
	if distance <= 3 {
		return proximityNear
	}
	return proximityFar
}

func (p proximity) describe() string {
	switch p {
	case proximityAdjacent:
		return "The goal is one step away."
	case proximityNear:
		return "The goal is close."
	default:
		return "The goal is still far."
	}
}

// adjacentHoles counts holes reachable in one move from p.
func adjacentHoles(world *GridWorld, p Position) int {
	count := 0
	for _, a := range Actions {
		next := p.add(actionDeltas[a])
		if world.InBounds(next) && world.TileAt(next) == TileHole {
			count++
		}
	}
	return count
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
