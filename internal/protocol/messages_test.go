package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/wire"
)

func TestClientValidate(t *testing.T) {
	assert.NoError(t, Play(PlayerPreferences{}).Validate())
	assert.NoError(t, Move(game.Position{}, game.Position{X: 1}).Validate())
	assert.NoError(t, Promote(game.Position{}, game.Lance).Validate())

	assert.ErrorIs(t, ClientMessage{Type: MovePiece}.Validate(), ErrMissingBody)
	assert.ErrorIs(t, ClientMessage{Type: 42}.Validate(), ErrUnknownType)
	assert.ErrorIs(t, ClientMessage{}.Validate(), ErrUnknownType)
}

func TestServerValidate(t *testing.T) {
	for _, m := range []ServerMessage{
		Errorf("nope %d", 1),
		Started(GameStart{}),
		Turn(game.White),
		Moved(PieceMove{}),
		Promoted(PiecePromotion{}),
		Ended(Draw, nil),
	} {
		assert.NoError(t, m.Validate(), m.Type.String())
	}
	assert.ErrorIs(t, ServerMessage{Type: GameEnded}.Validate(), ErrMissingBody)
	assert.ErrorIs(t, ServerMessage{Type: 9}.Validate(), ErrUnknownType)
}

// A black winner is the zero colour and must survive encoding.
func TestOutcomeWinnerSurvivesEncoding(t *testing.T) {
	b, err := wire.Encode(wire.CBOR, Won(Annihilation, game.Black))
	require.NoError(t, err)

	got, err := wire.NewDecoder[ServerMessage](wire.CBOR).Feed(b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Outcome)
	require.NotNil(t, got[0].Outcome.Winner)
	assert.Equal(t, game.Black, *got[0].Outcome.Winner)

	b, err = wire.Encode(wire.CBOR, Ended(Draw, nil))
	require.NoError(t, err)
	got, err = wire.NewDecoder[ServerMessage](wire.CBOR).Feed(b)
	require.NoError(t, err)
	assert.Nil(t, got[0].Outcome.Winner)
}

func TestMoveSurvivesEncoding(t *testing.T) {
	want := Move(game.Position{X: 4, Y: 2}, game.Position{X: 12, Y: 8})
	b, err := wire.Encode(wire.CBOR, want)
	require.NoError(t, err)

	got, err := wire.NewDecoder[ClientMessage](wire.CBOR).Feed(b)
	require.NoError(t, err)
	assert.Equal(t, []ClientMessage{want}, got)
}

func TestNormalize(t *testing.T) {
	p := PlayerPreferences{PlayerName: "  ada ", GameName: "\tlobby\n"}
	p.Normalize()
	assert.Equal(t, "ada", p.PlayerName)
	assert.Equal(t, "lobby", p.GameName)
}
