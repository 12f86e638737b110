// internal/game/types.go
//
// Core type definitions for the Shashkrid rule engine.
// Defines:
//   - Colour: the two sides of a match (Black moves first).
//   - Rules: per-match limits (actions per turn, turn limit).
//   - Placement: one piece of a starting deployment.
//   - Game: authoritative state for a single match.
//
// The board is an arena of hexes indexed by position and pieces are an arena
// of entries referenced by PieceID from both the occupied hex and the owning
// player. Both sides are only ever updated together inside engine operations.

package game

import "fmt"

// Colour identifies one of the two players.
type Colour uint8

const (
	Black Colour = iota
	White
)

// Opponent returns the other colour.
func (c Colour) Opponent() Colour {
	if c == Black {
		return White
	}
	return Black
}

// String returns "black" or "white".
func (c Colour) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	}
	return fmt.Sprintf("colour(%d)", uint8(c))
}

// Valid reports whether c is Black or White.
func (c Colour) Valid() bool { return c == Black || c == White }

// forward is the row direction this colour advances in.
func (c Colour) forward() int {
	if c == Black {
		return 1
	}
	return -1
}

// Rules holds the tunable limits of a match.
type Rules struct {
	ActionsPerTurn int // Moves and promotions allowed per turn (before the piece-count cap).
	TurnLimit      int // Turn number at which domination is evaluated.
}

const (
	defaultActionsPerTurn = 3
	defaultTurnLimit      = 50
)

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{ActionsPerTurn: defaultActionsPerTurn, TurnLimit: defaultTurnLimit}
}

// Placement puts one piece on the board when a game is created.
type Placement struct {
	Kind     PieceKind `cbor:"1,keyasint"`
	Owner    Colour    `cbor:"2,keyasint"`
	Position Position  `cbor:"3,keyasint"`
}

// PieceID indexes the piece arena of a Game.
type PieceID int

const noPiece PieceID = -1

// Piece is a read-only snapshot of a piece on the board.
type Piece struct {
	ID       PieceID
	Kind     PieceKind
	Owner    Colour
	Position Position
	CanMove  bool
}

// hex is one arena slot of the board. Slots for void cells are never valid.
type hex struct {
	position   Position
	valid      bool
	piece      PieceID
	neighbours []int // indices of in-bounds, non-void neighbours
}

// piece is one arena entry. hex is -1 once the piece has left the board.
type piece struct {
	kind    PieceKind
	owner   Colour
	hex     int
	canMove bool
}

// player is the set of pieces a colour still has on the board.
type player struct {
	colour Colour
	pieces map[PieceID]struct{}
}

// Game holds the authoritative state of one match.
type Game struct {
	rules     Rules
	hexes     []hex
	pieces    []piece
	players   [2]player
	active    Colour
	turn      int
	actions   int
	winner    Colour
	hasWinner bool
}
