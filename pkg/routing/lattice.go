package routing

// Cell is a lattice coordinate.
type Cell struct {
	X, Y int
}

// Lattice is a W x H 4-connected grid with unit move cost and blocked cells.
// It is used to exercise and demonstrate the search away from road data.
type Lattice struct {
	W, H    int
	blocked map[Cell]struct{}
}

// NewLattice returns a w x h lattice with the given cells blocked.
func NewLattice(w, h int, blocked ...Cell) *Lattice {
	l := &Lattice{W: w, H: h, blocked: make(map[Cell]struct{}, len(blocked))}
	for _, c := range blocked {
		l.Block(c)
	}
	return l
}

// Block marks c impassable.
func (l *Lattice) Block(c Cell) { l.blocked[c] = struct{}{} }

// Blocked reports whether c is impassable.
func (l *Lattice) Blocked(c Cell) bool {
	_, ok := l.blocked[c]
	return ok
}

// Valid reports whether c is inside the lattice and not blocked.
func (l *Lattice) Valid(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < l.W && c.Y < l.H && !l.Blocked(c)
}

var latticeMoves = [4]Cell{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func (l *Lattice) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range latticeMoves {
		n := Cell{c.X + d.X, c.Y + d.Y}
		if l.Valid(n) {
			out = append(out, n)
		}
	}
	return out
}

func (l *Lattice) Cost(from, to Cell) float64 { return 1 }

// Heuristic is the Manhattan distance.
func (l *Lattice) Heuristic(from, goal Cell) float64 {
	return float64(abs(from.X-goal.X) + abs(from.Y-goal.Y))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
