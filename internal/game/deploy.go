package game

// Mirror returns the cell that corresponds to p from the other side of the
// board (a point reflection through the centre).
func Mirror(p Position) Position {
	return Position{X: BoardWidth - 1 - p.X, Y: BoardHeight - 1 - p.Y}
}

// MirrorDeployment returns black's placements followed by White's mirrored copy.
// Owners in the input are ignored and forced to Black.
func MirrorDeployment(black []Placement) []Placement {
	out := make([]Placement, 0, 2*len(black))
	for _, pl := range black {
		pl.Owner = Black
		out = append(out, pl)
	}
	for _, pl := range black {
		out = append(out, Placement{Kind: pl.Kind, Owner: White, Position: Mirror(pl.Position)})
	}
	return out
}

// DefaultDeployment is the standard starting position for both players.
func DefaultDeployment() []Placement {
	black := []Placement{
		{Kind: Lance, Position: Position{X: 0, Y: 0}},
		{Kind: Martyr, Position: Position{X: 2, Y: 0}},
		{Kind: Serpent, Position: Position{X: 4, Y: 0}},
		{Kind: Guardian, Position: Position{X: 6, Y: 0}},
		{Kind: Serpent, Position: Position{X: 8, Y: 0}},
		{Kind: Martyr, Position: Position{X: 10, Y: 0}},
		{Kind: Lance, Position: Position{X: 12, Y: 0}},
	}
	for x := 1; x < BoardWidth; x += 2 {
		black = append(black, Placement{Kind: Pawn, Position: Position{X: x, Y: 1}})
	}
	return MirrorDeployment(black)
}
