package game

import "fmt"

// Board dimensions. X is the column, Y is the row; Black's home edge is row 0.
const (
	BoardWidth  = 13
	BoardHeight = 9
)

// voidCells are interior cells that are permanently out of play.
var voidCells = map[Position]struct{}{
	{X: 3, Y: 4}: {},
	{X: 6, Y: 4}: {},
	{X: 9, Y: 4}: {},
}

// neighbourOffsets are the six axial hex directions.
var neighbourOffsets = [6]Position{
	{X: 0, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
}

// Position is a cell in cube coordinates; the third coordinate z = -x-y is implicit.
type Position struct {
	X int `cbor:"1,keyasint" json:"x"`
	Y int `cbor:"2,keyasint" json:"y"`
}

// Z returns the implicit third cube coordinate.
func (p Position) Z() int { return -p.X - p.Y }

// Add returns p offset by o.
func (p Position) Add(o Position) Position { return Position{X: p.X + o.X, Y: p.Y + o.Y} }

// Sub returns the offset from o to p.
func (p Position) Sub(o Position) Position { return Position{X: p.X - o.X, Y: p.Y - o.Y} }

// Distance returns the hex distance between two positions
// (the largest of the three absolute cube deltas).
func (p Position) Distance(o Position) int {
	d := p.Sub(o)
	return max(abs(d.X), abs(d.Y), abs(d.Z()))
}

// InBounds reports whether p lies within the rectangular board bounds.
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < BoardWidth && p.Y >= 0 && p.Y < BoardHeight
}

// IsVoid reports whether p is one of the permanently excluded cells.
func (p Position) IsVoid() bool {
	_, ok := voidCells[p]
	return ok
}

// IsValid reports whether p is a playable cell.
func (p Position) IsValid() bool { return p.InBounds() && !p.IsVoid() }

// Neighbours returns the six adjacent positions, including off-board ones.
func (p Position) Neighbours() [6]Position {
	var out [6]Position
	for i, off := range neighbourOffsets {
		out[i] = p.Add(off)
	}
	return out
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// index maps an in-bounds position to its arena slot.
func index(p Position) int { return p.X + p.Y*BoardWidth }
