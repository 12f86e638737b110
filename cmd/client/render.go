package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/robalobadob/shashkrid/internal/client"
	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/protocol"
)

// glyph is upper case for Black and lower case for White.
func glyph(p game.Piece) string {
	s := strings.ToUpper(p.Kind.String()[:1])
	if p.Owner == game.White {
		s = strings.ToLower(s)
	}
	return s
}

// renderBoard draws the board with White's home row on top. Each row is
// shifted half a cell so neighbouring hexes line up.
func renderBoard(w io.Writer, st client.State) {
	occupied := make(map[game.Position]game.Piece, len(st.Pieces))
	for _, p := range st.Pieces {
		occupied[p.Position] = p
	}
	for y := game.BoardHeight - 1; y >= 0; y-- {
		var b strings.Builder
		fmt.Fprintf(&b, "%d %s", y, strings.Repeat(" ", y))
		for x := 0; x < game.BoardWidth; x++ {
			pos := game.Position{X: x, Y: y}
			switch p, ok := occupied[pos]; {
			case pos.IsVoid():
				b.WriteString(" #")
			case ok:
				b.WriteString(" " + glyph(p))
			default:
				b.WriteString(" .")
			}
		}
		fmt.Fprintln(w, b.String())
	}
	var cols strings.Builder
	cols.WriteString("  ")
	for x := 0; x < game.BoardWidth; x++ {
		fmt.Fprintf(&cols, "%2d", x%10)
	}
	fmt.Fprintln(w, cols.String())
}

func describe(msg protocol.ServerMessage, st client.State) string {
	switch msg.Type {
	case protocol.Error:
		return "server: " + msg.Error.Message
	case protocol.GameStarted:
		return fmt.Sprintf("game started: %s (black) vs %s (white); you are %s",
			msg.Start.Black.Name, msg.Start.White.Name, st.Colour)
	case protocol.NewTurn:
		if st.YourTurn() {
			return fmt.Sprintf("turn %d: your move (%d actions)", st.Turn, st.Rules.ActionsPerTurn)
		}
		return fmt.Sprintf("turn %d: %s to move", st.Turn, msg.Turn.Active)
	case protocol.PieceMoved:
		return fmt.Sprintf("moved %s -> %s", msg.Move.Source, msg.Move.Destination)
	case protocol.PiecePromoted:
		return fmt.Sprintf("promoted %s to %s", msg.Promotion.Position, msg.Promotion.Kind)
	case protocol.GameEnded:
		o := msg.Outcome
		if o.Winner == nil {
			return fmt.Sprintf("game over: %s", o.Outcome)
		}
		res := "you lost"
		if *o.Winner == st.Colour {
			res = "you won"
		}
		return fmt.Sprintf("game over: %s, %s wins (%s)", o.Outcome, *o.Winner, res)
	}
	return fmt.Sprintf("server message %d", msg.Type)
}
