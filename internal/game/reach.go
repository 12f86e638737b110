package game

import "sort"

// Reachable lists the destinations the piece on p could move to this turn,
// ignoring whether it has already acted. Enemy-occupied destinations are
// included (moving there starts combat); the result is ordered by row, then column.
func (g *Game) Reachable(p Position) []Position {
	idx, ok := g.hexIndex(p)
	if !ok || g.hexes[idx].piece == noPiece {
		return nil
	}
	out := g.reachable(g.hexes[idx].piece)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func (g *Game) canReach(id PieceID, dst int) bool {
	target := g.hexes[dst].position
	for _, p := range g.reachable(id) {
		if p == target {
			return true
		}
	}
	return false
}

// reachable computes the raw reachable set for a piece and then applies its
// movement shape.
func (g *Game) reachable(id PieceID) []Position {
	pc := g.pieces[id]
	t := TypeOf(pc.kind)
	origin := g.hexes[pc.hex].position
	var raw []Position
	if t.PassThrough {
		raw = g.withinRange(pc, t.Movement)
	} else {
		raw = g.floodFill(pc, t.Movement)
	}
	return t.Shape(origin, pc.owner, raw)
}

// floodFill spends one movement point per step and never enters an occupied
// hex. An enemy hex within range is reachable as a capture target but is not
// expanded further.
func (g *Game) floodFill(pc piece, movement int) []Position {
	type step struct{ hex, left int }
	seen := map[int]bool{pc.hex: true}
	queue := []step{{hex: pc.hex, left: movement}}
	var out []Position
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.left == 0 {
			continue
		}
		for _, n := range g.hexes[cur.hex].neighbours {
			if seen[n] {
				continue
			}
			if occ := g.hexes[n].piece; occ != noPiece {
				if g.pieces[occ].owner != pc.owner {
					seen[n] = true
					out = append(out, g.hexes[n].position)
				}
				continue
			}
			seen[n] = true
			out = append(out, g.hexes[n].position)
			queue = append(queue, step{hex: n, left: cur.left - 1})
		}
	}
	return out
}

// withinRange is purely geometric: every playable hex within range that is not
// held by a friendly piece.
func (g *Game) withinRange(pc piece, movement int) []Position {
	origin := g.hexes[pc.hex].position
	var out []Position
	for i := range g.hexes {
		h := &g.hexes[i]
		if !h.valid || i == pc.hex || origin.Distance(h.position) > movement {
			continue
		}
		if h.piece != noPiece && g.pieces[h.piece].owner == pc.owner {
			continue
		}
		out = append(out, h.position)
	}
	return out
}
