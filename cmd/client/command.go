package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robalobadob/shashkrid/internal/game"
)

type verb int

const (
	verbMove verb = iota + 1
	verbPromote
	verbReach
	verbBoard
	verbAgain
	verbHelp
	verbQuit
)

type command struct {
	verb verb
	from game.Position
	to   game.Position
	kind game.PieceKind
}

const usage = `commands:
  move X Y X Y      move the piece at the first hex to the second
  promote X Y KIND  promote the piece at X Y (pawn, martyr, guardian, lance, serpent)
  reach X Y         list hexes the piece at X Y can move to
  board             print the board
  again             look for a new game after one ends
  help              show this text
  quit              disconnect`

var errEmpty = errors.New("empty command")

func parseCommand(line string) (command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return command{}, errEmpty
	}
	args := f[1:]
	switch strings.ToLower(f[0]) {
	case "move", "m":
		if len(args) != 4 {
			return command{}, errors.New("usage: move X Y X Y")
		}
		from, err := parsePosition(args[0], args[1])
		if err != nil {
			return command{}, err
		}
		to, err := parsePosition(args[2], args[3])
		if err != nil {
			return command{}, err
		}
		return command{verb: verbMove, from: from, to: to}, nil
	case "promote", "p":
		if len(args) != 3 {
			return command{}, errors.New("usage: promote X Y KIND")
		}
		at, err := parsePosition(args[0], args[1])
		if err != nil {
			return command{}, err
		}
		kind, err := game.ParseKind(args[2])
		if err != nil {
			return command{}, err
		}
		return command{verb: verbPromote, from: at, kind: kind}, nil
	case "reach", "r":
		if len(args) != 2 {
			return command{}, errors.New("usage: reach X Y")
		}
		at, err := parsePosition(args[0], args[1])
		if err != nil {
			return command{}, err
		}
		return command{verb: verbReach, from: at}, nil
	case "board", "b":
		return command{verb: verbBoard}, nil
	case "again":
		return command{verb: verbAgain}, nil
	case "help", "?":
		return command{verb: verbHelp}, nil
	case "quit", "q", "exit":
		return command{verb: verbQuit}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", f[0])
}

func parsePosition(xs, ys string) (game.Position, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return game.Position{}, fmt.Errorf("bad column %q", xs)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return game.Position{}, fmt.Errorf("bad row %q", ys)
	}
	return game.Position{X: x, Y: y}, nil
}
