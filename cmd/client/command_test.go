package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/shashkrid/internal/client"
	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/protocol"
)

func TestParseCommand(t *testing.T) {
	cmd, err := parseCommand("move 1 2 1 3")
	require.NoError(t, err)
	assert.Equal(t, command{verb: verbMove, from: game.Position{X: 1, Y: 2}, to: game.Position{X: 1, Y: 3}}, cmd)

	cmd, err = parseCommand("  P 4 1 serpent ")
	require.NoError(t, err)
	assert.Equal(t, command{verb: verbPromote, from: game.Position{X: 4, Y: 1}, kind: game.Serpent}, cmd)

	cmd, err = parseCommand("reach 0 0")
	require.NoError(t, err)
	assert.Equal(t, verbReach, cmd.verb)

	cmd, err = parseCommand("quit")
	require.NoError(t, err)
	assert.Equal(t, verbQuit, cmd.verb)
}

func TestParseCommandErrors(t *testing.T) {
	_, err := parseCommand("   ")
	assert.ErrorIs(t, err, errEmpty)

	for _, line := range []string{"move 1 2 3", "move a 2 1 3", "promote 1 1 king", "reach 1", "dance"} {
		_, err := parseCommand(line)
		assert.Error(t, err, line)
	}
}

func TestRenderBoard(t *testing.T) {
	var buf bytes.Buffer
	renderBoard(&buf, client.State{Pieces: []game.Piece{
		{Kind: game.Guardian, Owner: game.Black, Position: game.Position{X: 0, Y: 0}},
		{Kind: game.Lance, Owner: game.White, Position: game.Position{X: 12, Y: 8}},
	}})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, game.BoardHeight+1)

	assert.True(t, strings.HasSuffix(lines[0], " l"), lines[0])
	assert.True(t, strings.HasPrefix(lines[8], "0  G"), lines[8])
	assert.Equal(t, 3, strings.Count(lines[4], "#"))
}

func TestDescribeOutcome(t *testing.T) {
	st := client.State{Colour: game.White}
	msg := protocol.Won(protocol.Domination, game.White)
	assert.Equal(t, "game over: domination, white wins (you won)", describe(msg, st))

	msg = protocol.Ended(protocol.Draw, nil)
	assert.Equal(t, "game over: draw", describe(msg, st))
}
