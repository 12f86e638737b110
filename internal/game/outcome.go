package game

// Winner returns the declared winner, if any.
func (g *Game) Winner() (Colour, bool) { return g.winner, g.hasWinner }

func (g *Game) setWinner(c Colour) {
	g.winner, g.hasWinner = c, true
}

// IsAnnihilation reports whether either player has no pieces left, and if so
// declares the other player the winner.
func (g *Game) IsAnnihilation() bool {
	for _, c := range [2]Colour{Black, White} {
		if len(g.players[c].pieces) == 0 {
			g.setWinner(c.Opponent())
			return true
		}
	}
	return false
}

// IsDomination compares the zones of control. The player with the strictly
// larger zone is declared the winner; equal zones leave the winner unset.
// It is meant to be evaluated once the turn limit has been reached.
func (g *Game) IsDomination() bool {
	black, white := g.ZoneOfControl(Black), g.ZoneOfControl(White)
	switch {
	case black > white:
		g.setWinner(Black)
	case white > black:
		g.setWinner(White)
	default:
		g.hasWinner = false
		return false
	}
	return true
}

// ZoneOfControl counts, column by column, the cells c controls from its home
// edge. A column's scan stops before the first enemy piece; the column
// contributes every cell up to and including c's furthest piece in the scan.
// Void cells are skipped and never counted.
func (g *Game) ZoneOfControl(c Colour) int {
	total := 0
	for x := 0; x < BoardWidth; x++ {
		scanned, reached := 0, 0
		for i := 0; i < BoardHeight; i++ {
			y := i
			if c == White {
				y = BoardHeight - 1 - i
			}
			idx, ok := g.hexIndex(Position{X: x, Y: y})
			if !ok {
				continue
			}
			id := g.hexes[idx].piece
			if id != noPiece && g.pieces[id].owner != c {
				break
			}
			scanned++
			if id != noPiece {
				reached = scanned
			}
		}
		total += reached
	}
	return total
}
