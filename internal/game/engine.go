// internal/game/engine.go
//
// Core rule engine for a single Shashkrid match.
// Responsibilities:
//   - Build the board (void cells excluded) and deploy the starting pieces.
//   - Validate and apply moves, including combat resolution.
//   - Validate and apply pawn promotions.
//   - Track turn sequencing: active player, turn counter, per-turn action counter.
//
// Notes:
//   - Every operation is synchronous and bounded; nothing here blocks.
//   - Turn and state checks belong to the caller (the server session); the
//     engine only enforces the board rules.
//   - Win conditions live in outcome.go, reachability in reach.go.
package game

import (
	"fmt"
	"sort"
)

// New builds a game with the given rules and deployment. Black is active on turn 1.
func New(rules Rules, deployment []Placement) (*Game, error) {
	if rules.ActionsPerTurn < 1 || rules.TurnLimit < 1 {
		return nil, ErrInvalidRules
	}
	g := &Game{
		rules:  rules,
		active: Black,
		turn:   1,
	}
	g.players[Black] = player{colour: Black, pieces: make(map[PieceID]struct{})}
	g.players[White] = player{colour: White, pieces: make(map[PieceID]struct{})}
	g.createGrid()

	for _, pl := range deployment {
		if !pl.Kind.Valid() || !pl.Owner.Valid() {
			return nil, fmt.Errorf("%w: bad piece at %s", ErrBadDeployment, pl.Position)
		}
		idx, ok := g.hexIndex(pl.Position)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a playable cell", ErrBadDeployment, pl.Position)
		}
		if g.hexes[idx].piece != noPiece {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlaced, pl.Position)
		}
		g.place(g.spawn(pl.Kind, pl.Owner), idx)
	}
	return g, nil
}

// NewDefault builds a game with the standard rules and deployment.
func NewDefault() *Game {
	g, err := New(DefaultRules(), DefaultDeployment())
	if err != nil {
		panic(err)
	}
	return g
}

// createGrid allocates one slot per in-bounds cell and links neighbours.
func (g *Game) createGrid() {
	g.hexes = make([]hex, BoardWidth*BoardHeight)
	for y := 0; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			p := Position{X: x, Y: y}
			g.hexes[index(p)] = hex{position: p, valid: !p.IsVoid(), piece: noPiece}
		}
	}
	for i := range g.hexes {
		h := &g.hexes[i]
		if !h.valid {
			continue
		}
		for _, n := range h.position.Neighbours() {
			if j, ok := g.hexIndex(n); ok {
				h.neighbours = append(h.neighbours, j)
			}
		}
	}
}

// hexIndex returns the arena slot of a playable position.
func (g *Game) hexIndex(p Position) (int, bool) {
	if !p.InBounds() {
		return 0, false
	}
	i := index(p)
	return i, g.hexes[i].valid
}

// spawn adds a piece to the arena and to its owner's set, off the board.
func (g *Game) spawn(kind PieceKind, owner Colour) PieceID {
	id := PieceID(len(g.pieces))
	g.pieces = append(g.pieces, piece{kind: kind, owner: owner, hex: -1, canMove: true})
	g.players[owner].pieces[id] = struct{}{}
	return id
}

// place links a piece and an empty hex in both directions.
func (g *Game) place(id PieceID, idx int) {
	g.pieces[id].hex = idx
	g.hexes[idx].piece = id
}

// remove takes a piece off the board and out of its owner's set.
func (g *Game) remove(id PieceID) {
	pc := &g.pieces[id]
	if pc.hex >= 0 {
		g.hexes[pc.hex].piece = noPiece
	}
	pc.hex = -1
	delete(g.players[pc.owner].pieces, id)
}

// MovePiece moves the piece on source to destination, capturing an enemy
// piece there if the combined attack is strong enough.
func (g *Game) MovePiece(source, destination Position) error {
	src, ok := g.hexIndex(source)
	if !ok {
		return ErrInvalidPosition
	}
	dst, ok := g.hexIndex(destination)
	if !ok {
		return ErrInvalidPosition
	}
	if src == dst {
		return ErrSameHex
	}
	if g.NoActionsLeft() {
		return ErrNoActionsLeft
	}
	attacker := g.hexes[src].piece
	if attacker == noPiece {
		return ErrNoPiece
	}
	att := &g.pieces[attacker]
	if att.owner != g.active {
		return ErrNotYourPiece
	}
	if !att.canMove {
		return ErrAlreadyActed
	}
	defender := g.hexes[dst].piece
	if defender != noPiece && g.pieces[defender].owner == att.owner {
		return ErrOwnPiece
	}
	if !g.canReach(attacker, dst) {
		return ErrUnreachable
	}
	if defender != noPiece {
		if g.attackSum(attacker, defender) < TypeOf(g.pieces[defender].kind).Defense {
			return ErrAttackTooWeak
		}
		g.remove(defender)
	}

	g.hexes[src].piece = noPiece
	g.place(attacker, dst)
	att.canMove = false
	g.actions++
	return nil
}

// attackSum is the attacker's attack plus the support of every other allied
// piece adjacent to the defender.
func (g *Game) attackSum(attacker, defender PieceID) int {
	att := g.pieces[attacker]
	sum := TypeOf(att.kind).Attack
	for _, n := range g.hexes[g.pieces[defender].hex].neighbours {
		id := g.hexes[n].piece
		if id == noPiece || id == attacker {
			continue
		}
		if ally := g.pieces[id]; ally.owner == att.owner {
			sum += TypeOf(ally.kind).Support
		}
	}
	return sum
}

// PromotePiece replaces the pawn on position with a new piece of kind. The new
// piece cannot act again this turn.
func (g *Game) PromotePiece(position Position, kind PieceKind) error {
	idx, ok := g.hexIndex(position)
	if !ok {
		return ErrInvalidPosition
	}
	if g.NoActionsLeft() {
		return ErrNoActionsLeft
	}
	id := g.hexes[idx].piece
	if id == noPiece {
		return ErrNoPiece
	}
	pawn := g.pieces[id]
	if pawn.owner != g.active {
		return ErrNotYourPiece
	}
	if pawn.kind != Pawn {
		return ErrNotPawn
	}
	if !pawn.canMove {
		return ErrAlreadyActed
	}
	if !kind.Valid() || kind == Pawn {
		return ErrInvalidPromotion
	}
	for _, n := range g.hexes[idx].neighbours {
		if other := g.hexes[n].piece; other != noPiece && g.pieces[other].owner != pawn.owner {
			return ErrContested
		}
	}

	g.remove(id)
	promoted := g.spawn(kind, pawn.owner)
	g.place(promoted, idx)
	g.pieces[promoted].canMove = false
	g.actions++
	return nil
}

// NewTurn hands the turn to the other player and makes every piece movable again.
func (g *Game) NewTurn() {
	g.active = g.active.Opponent()
	g.turn++
	g.actions = 0
	for i := range g.pieces {
		g.pieces[i].canMove = true
	}
}

// NoActionsLeft reports whether the active player has used up this turn. A
// player with fewer pieces than the action limit gets one action per piece.
func (g *Game) NoActionsLeft() bool {
	limit := min(len(g.players[g.active].pieces), g.rules.ActionsPerTurn)
	return g.actions >= limit
}

// Rules returns the limits this game was created with.
func (g *Game) Rules() Rules { return g.rules }

// Active returns the colour whose turn it is.
func (g *Game) Active() Colour { return g.active }

// Turn returns the current turn number, starting at 1.
func (g *Game) Turn() int { return g.turn }

// Actions returns how many actions the active player has taken this turn.
func (g *Game) Actions() int { return g.actions }

// TurnLimitReached reports whether domination should be evaluated.
func (g *Game) TurnLimitReached() bool { return g.turn >= g.rules.TurnLimit }

// PieceCount returns the number of pieces c has on the board.
func (g *Game) PieceCount(c Colour) int { return len(g.players[c].pieces) }

// PieceAt returns the piece on p, if any.
func (g *Game) PieceAt(p Position) (Piece, bool) {
	idx, ok := g.hexIndex(p)
	if !ok || g.hexes[idx].piece == noPiece {
		return Piece{}, false
	}
	return g.view(g.hexes[idx].piece), true
}

// Pieces returns c's pieces on the board ordered by ID.
func (g *Game) Pieces(c Colour) []Piece {
	out := make([]Piece, 0, len(g.players[c].pieces))
	for id := range g.players[c].pieces {
		out = append(out, g.view(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Game) view(id PieceID) Piece {
	pc := g.pieces[id]
	return Piece{
		ID:       id,
		Kind:     pc.kind,
		Owner:    pc.owner,
		Position: g.hexes[pc.hex].position,
		CanMove:  pc.canMove,
	}
}
