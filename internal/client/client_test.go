package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/gameserver"
	"github.com/robalobadob/shashkrid/internal/protocol"
	"github.com/robalobadob/shashkrid/internal/wire"
)

const waitFor = 5 * time.Second

type player struct {
	c      *Client
	events chan protocol.ServerMessage
	done   chan error
}

func join(t *testing.T, ctx context.Context, srv *gameserver.Server, name string, wantsBlack bool) *player {
	t.Helper()
	a, b := net.Pipe()
	go func() { _ = srv.ServeConn(ctx, a, name) }()

	p := &player{events: make(chan protocol.ServerMessage, 64), done: make(chan error, 1)}
	p.c = New(b, protocol.PlayerPreferences{PlayerName: name, GameName: "lobby", WantsBlack: wantsBlack},
		func(msg protocol.ServerMessage) { p.events <- msg })
	go func() { p.done <- p.c.Run(ctx) }()
	return p
}

func (p *player) await(t *testing.T, typ protocol.ServerMessageType) protocol.ServerMessage {
	t.Helper()
	for {
		select {
		case msg := <-p.events:
			if msg.Type == typ {
				return msg
			}
		case err := <-p.done:
			t.Fatalf("client stopped: %v", err)
		case <-time.After(waitFor):
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func newServer(t *testing.T) *gameserver.Server {
	t.Helper()
	nop := zerolog.Nop()
	srv, err := gameserver.New(gameserver.Options{Logger: &nop})
	require.NoError(t, err)
	return srv
}

func TestMirrorFollowsServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := newServer(t)

	ada := join(t, ctx, srv, "ada", true)
	require.Eventually(t, func() bool { return len(srv.Snapshot()) == 1 && srv.Snapshot()[0].State == "waiting" },
		waitFor, 5*time.Millisecond)
	bob := join(t, ctx, srv, "bob", false)

	for _, p := range []*player{ada, bob} {
		p.await(t, protocol.NewTurn)
	}
	st := ada.c.State()
	assert.True(t, st.YourTurn())
	assert.Equal(t, "bob", st.Opponent)
	assert.Len(t, st.Pieces, 26)
	assert.False(t, bob.c.State().YourTurn())
	assert.Contains(t, ada.c.Reachable(game.Position{X: 1, Y: 1}), game.Position{X: 1, Y: 3})

	require.NoError(t, ada.c.Move(game.Position{X: 1, Y: 1}, game.Position{X: 1, Y: 3}))
	for _, p := range []*player{ada, bob} {
		p.await(t, protocol.PieceMoved)
		st := p.c.State()
		assert.Equal(t, 1, st.Actions)
		moved := false
		for _, pc := range st.Pieces {
			if pc.Position == (game.Position{X: 1, Y: 3}) {
				moved = pc.Kind == game.Pawn && pc.Owner == game.Black && !pc.CanMove
			}
		}
		assert.True(t, moved, "mirror of %s missed the move", p.c.prefs.PlayerName)
	}

	// Rejected requests leave the mirror untouched.
	require.NoError(t, bob.c.Move(game.Position{X: 1, Y: 7}, game.Position{X: 1, Y: 6}))
	bob.await(t, protocol.Error)
	assert.Equal(t, 1, bob.c.State().Actions)

	require.NoError(t, ada.c.Close())
	out := bob.await(t, protocol.GameEnded).Outcome
	assert.Equal(t, protocol.Desertion, out.Outcome)
	assert.False(t, bob.c.InGame())
	require.NotNil(t, bob.c.State().Outcome)
	assert.ErrorIs(t, bob.c.Move(game.Position{}, game.Position{X: 1}), ErrNoGame)
}

func TestDesyncIsFatal(t *testing.T) {
	a, b := net.Pipe()
	c := New(b, protocol.PlayerPreferences{PlayerName: "ada", GameName: "g"}, nil)
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	fake := wire.New[protocol.ClientMessage, protocol.ServerMessage](a)
	go func() { _ = fake.Run(context.Background(), func(protocol.ClientMessage) error { return nil }) }()
	require.NoError(t, fake.Send(protocol.Moved(protocol.PieceMove{Destination: game.Position{X: 1}})))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDesync)
	case <-time.After(waitFor):
		t.Fatal("client accepted a move outside a game")
	}
}

func TestGameStartedPicksColourByName(t *testing.T) {
	c := New(nopConn{}, protocol.PlayerPreferences{PlayerName: " bob "}, nil)
	start := protocol.GameStart{
		Black:          protocol.PlayerDescription{Name: "ada"},
		White:          protocol.PlayerDescription{Name: "bob"},
		ActionsPerTurn: 2,
		TurnLimit:      9,
		Deployment:     game.DefaultDeployment(),
	}
	require.NoError(t, c.apply(protocol.Started(start)))
	st := c.State()
	assert.Equal(t, game.White, st.Colour)
	assert.Equal(t, "ada", st.Opponent)
	assert.Equal(t, game.Rules{ActionsPerTurn: 2, TurnLimit: 9}, st.Rules)

	require.NoError(t, c.apply(protocol.Turn(game.Black)))
	assert.Equal(t, 1, c.State().Turn)
	require.NoError(t, c.apply(protocol.Turn(game.White)))
	assert.Equal(t, 2, c.State().Turn)
	assert.True(t, c.State().YourTurn())
}

type nopConn struct{}

func (nopConn) Read([]byte) (int, error)    { select {} }
func (nopConn) Write(p []byte) (int, error) { return len(p), nil }
func (nopConn) Close() error                { return nil }
