package game

import (
	"fmt"
	"strings"
)

// PieceKind tags one of the fixed piece profiles.
type PieceKind uint8

const (
	Pawn PieceKind = iota
	Martyr
	Guardian
	Lance
	Serpent
)

// PieceType is the immutable combat and movement profile of a kind.
type PieceType struct {
	Kind        PieceKind
	Name        string
	Attack      int
	Support     int // added to an adjacent ally's attack on a defender
	Defense     int
	Movement    int
	PassThrough bool // reachability ignores occupied hexes along the way

	// keep is the movement-shape predicate applied after reachability.
	keep func(origin, dest Position, forward int) bool
}

var pieceTypes = [...]PieceType{
	Pawn:     {Kind: Pawn, Name: "Pawn", Attack: 1, Support: 1, Defense: 2, Movement: 2, keep: anyShape},
	Martyr:   {Kind: Martyr, Name: "Martyr", Attack: 2, Support: 1, Defense: 2, Movement: 3, keep: martyrShape},
	Guardian: {Kind: Guardian, Name: "Guardian", Attack: 0, Support: 2, Defense: 4, Movement: 1, keep: anyShape},
	Lance:    {Kind: Lance, Name: "Lance", Attack: 1, Support: 1, Defense: 1, Movement: 5, keep: lanceShape},
	Serpent:  {Kind: Serpent, Name: "Serpent", Attack: 1, Support: 1, Defense: 3, Movement: 3, PassThrough: true, keep: serpentShape},
}

// TypeOf returns the profile for k. It panics on an invalid kind.
func TypeOf(k PieceKind) PieceType {
	if !k.Valid() {
		panic(fmt.Sprintf("game: invalid piece kind %d", k))
	}
	return pieceTypes[k]
}

// Kinds lists every piece kind in declaration order.
func Kinds() []PieceKind {
	out := make([]PieceKind, len(pieceTypes))
	for i := range pieceTypes {
		out[i] = PieceKind(i)
	}
	return out
}

// Valid reports whether k names a known profile.
func (k PieceKind) Valid() bool { return int(k) < len(pieceTypes) }

func (k PieceKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return pieceTypes[k].Name
}

// ParseKind resolves a case-insensitive kind name.
func ParseKind(s string) (PieceKind, error) {
	s = strings.TrimSpace(s)
	for _, t := range pieceTypes {
		if strings.EqualFold(t.Name, s) {
			return t.Kind, nil
		}
	}
	return 0, fmt.Errorf("unknown piece kind %q", s)
}

// Shape filters a reachable set through the kind's movement shape.
// The result is always a subset of reachable, in the same order.
func (t PieceType) Shape(origin Position, owner Colour, reachable []Position) []Position {
	out := make([]Position, 0, len(reachable))
	for _, dest := range reachable {
		if t.keep(origin, dest, owner.forward()) {
			out = append(out, dest)
		}
	}
	return out
}

func anyShape(_, _ Position, _ int) bool { return true }

// martyrShape drops backward destinations beyond immediate adjacency.
func martyrShape(origin, dest Position, forward int) bool {
	backward := (dest.Y-origin.Y)*forward < 0
	return !backward || origin.Distance(dest) <= 1
}

// lanceShape keeps destinations that change only the column or only the row.
func lanceShape(origin, dest Position, _ int) bool {
	d := dest.Sub(origin)
	return d.X == 0 || d.Y == 0
}

// serpentShape cannot land exactly two steps away.
func serpentShape(origin, dest Position, _ int) bool {
	return origin.Distance(dest) != 2
}
