package gameserver

import (
	"context"
	"math/rand/v2"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/protocol"
	"github.com/robalobadob/shashkrid/internal/store"
	"github.com/robalobadob/shashkrid/internal/wire"
)

const waitFor = 5 * time.Second

func pos(x, y int) game.Position { return game.Position{X: x, Y: y} }

type peer struct {
	t  *testing.T
	m  *wire.Messenger[protocol.ServerMessage, protocol.ClientMessage]
	in chan protocol.ServerMessage
}

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	nop := zerolog.Nop()
	opts.Logger = &nop
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	srv, err := New(opts)
	require.NoError(t, err)
	return srv
}

func connect(t *testing.T, srv *Server) *peer {
	t.Helper()
	a, b := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = srv.ServeConn(ctx, a, "pipe") }()
	p := &peer{
		t:  t,
		m:  wire.New[protocol.ServerMessage, protocol.ClientMessage](b),
		in: make(chan protocol.ServerMessage, 64),
	}
	go func() {
		_ = p.m.Run(ctx, func(msg protocol.ServerMessage) error {
			p.in <- msg
			return nil
		})
	}()
	return p
}

func (p *peer) send(msg protocol.ClientMessage) {
	p.t.Helper()
	require.NoError(p.t, p.m.Send(msg))
}

func (p *peer) play(name, gameName string, wantsBlack bool) {
	p.send(protocol.Play(protocol.PlayerPreferences{
		ProtocolVersion: protocol.Version,
		PlayerName:      name,
		GameName:        gameName,
		WantsBlack:      wantsBlack,
	}))
}

func (p *peer) next() protocol.ServerMessage {
	p.t.Helper()
	select {
	case msg := <-p.in:
		return msg
	case <-time.After(waitFor):
		p.t.Fatal("timed out waiting for a server message")
	}
	return protocol.ServerMessage{}
}

func (p *peer) expect(typ protocol.ServerMessageType) protocol.ServerMessage {
	p.t.Helper()
	msg := p.next()
	require.Equal(p.t, typ, msg.Type, "got %+v", msg)
	require.NoError(p.t, msg.Validate())
	return msg
}

func (p *peer) expectError(contains string) {
	p.t.Helper()
	msg := p.expect(protocol.Error)
	assert.Contains(p.t, msg.Error.Message, contains)
}

func (p *peer) expectSilence() {
	p.t.Helper()
	select {
	case msg := <-p.in:
		p.t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// pair starts a game between a Black and a White player.
func pair(t *testing.T, srv *Server) (black, white *peer) {
	t.Helper()
	black, white = connect(t, srv), connect(t, srv)
	black.play("ada", "lobby", true)
	require.Eventually(t, func() bool {
		snap := srv.Snapshot()
		return len(snap) == 2 && (snap[0].State == "waiting" || snap[1].State == "waiting")
	}, waitFor, 5*time.Millisecond)
	white.play("bob", "lobby", false)

	for _, p := range []*peer{black, white} {
		start := p.expect(protocol.GameStarted).Start
		assert.Equal(t, "ada", start.Black.Name)
		assert.Equal(t, "bob", start.White.Name)
		assert.Equal(t, srv.Rules(), start.Rules())
		assert.Equal(t, game.Black, p.expect(protocol.NewTurn).Turn.Active)
	}
	return black, white
}

func TestPairingHonoursPreferences(t *testing.T) {
	srv := newServer(t, Options{})
	pair(t, srv)

	snap := srv.Snapshot()
	require.Len(t, snap, 2)
	byPlayer := map[string]SessionInfo{snap[0].Player: snap[0], snap[1].Player: snap[1]}
	assert.Equal(t, "black", byPlayer["ada"].Colour)
	assert.Equal(t, "white", byPlayer["bob"].Colour)
	assert.Equal(t, "bob", byPlayer["ada"].Opponent)
	assert.Equal(t, 1, byPlayer["bob"].Turn)
}

func TestSamePreferenceAssignsBothColours(t *testing.T) {
	srv := newServer(t, Options{})
	a, b := connect(t, srv), connect(t, srv)
	a.play("ada", "g", true)
	require.Eventually(t, func() bool { return len(srv.Snapshot()) == 2 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, si := range srv.Snapshot() {
			if si.State == "waiting" {
				return true
			}
		}
		return false
	}, waitFor, 5*time.Millisecond)
	b.play("bob", "g", true)

	start := a.expect(protocol.GameStarted).Start
	names := []string{start.Black.Name, start.White.Name}
	assert.ElementsMatch(t, []string{"ada", "bob"}, names)
}

func TestPlayValidation(t *testing.T) {
	srv := newServer(t, Options{})
	p := connect(t, srv)

	p.send(protocol.Play(protocol.PlayerPreferences{ProtocolVersion: 2, PlayerName: "ada", GameName: "g"}))
	p.expectError("protocol version")

	p.play("   ", "g", true)
	p.expectError("player name")

	p.play(strings.Repeat("x", protocol.NameLimit+1), "g", true)
	p.expectError("player name")

	p.play("ada", "", true)
	p.expectError("game name")

	p.send(protocol.ClientMessage{Type: protocol.PlayGame})
	p.expectError("body missing")

	p.play(strings.Repeat("x", protocol.NameLimit), "g", true)
	p.expectSilence()

	other := connect(t, srv)
	other.play(strings.Repeat("x", protocol.NameLimit), "elsewhere", true)
	other.expectError("already in use")
}

func TestMessagesOutOfState(t *testing.T) {
	srv := newServer(t, Options{})
	p := connect(t, srv)
	p.send(protocol.Move(pos(1, 1), pos(1, 2)))
	p.expectError("not allowed")

	p.play("ada", "g", true)
	p.play("ada", "g", true)
	p.expectError("not allowed")
}

func TestTurnFlow(t *testing.T) {
	srv := newServer(t, Options{})
	black, white := pair(t, srv)

	white.send(protocol.Move(pos(1, 7), pos(1, 6)))
	white.expectError("not your turn")

	black.send(protocol.Move(pos(2, 0), pos(1, 1)))
	black.expectError(game.ErrOwnPiece.Error())
	white.expectSilence()

	for _, x := range []int{1, 3, 5} {
		black.send(protocol.Move(pos(x, 1), pos(x, 2)))
		for _, p := range []*peer{black, white} {
			mv := p.expect(protocol.PieceMoved).Move
			assert.Equal(t, pos(x, 2), mv.Destination)
		}
	}
	for _, p := range []*peer{black, white} {
		assert.Equal(t, game.White, p.expect(protocol.NewTurn).Turn.Active)
	}

	white.send(protocol.Promote(pos(11, 7), game.Guardian))
	for _, p := range []*peer{black, white} {
		pr := p.expect(protocol.PiecePromoted).Promotion
		assert.Equal(t, game.Guardian, pr.Kind)
	}
}

func TestDominationAtTurnLimit(t *testing.T) {
	mem := store.NewMemoryStore()
	srv := newServer(t, Options{Rules: game.Rules{ActionsPerTurn: 1, TurnLimit: 1}, Standings: mem})
	black, white := pair(t, srv)

	black.send(protocol.Move(pos(1, 1), pos(1, 2)))
	for _, p := range []*peer{black, white} {
		p.expect(protocol.PieceMoved)
		out := p.expect(protocol.GameEnded).Outcome
		assert.Equal(t, protocol.Domination, out.Outcome)
		require.NotNil(t, out.Winner)
		assert.Equal(t, game.Black, *out.Winner)
	}

	require.Eventually(t, func() bool {
		ada, err := mem.Standing(context.Background(), "ada")
		return err == nil && ada.Wins == 1
	}, waitFor, 5*time.Millisecond)

	// Both sessions are back in the lobby and may play again.
	require.Eventually(t, func() bool {
		for _, si := range srv.Snapshot() {
			if si.State != "connected" {
				return false
			}
		}
		return true
	}, waitFor, 5*time.Millisecond)
	black.play("ada", "rematch", true)
	black.expectSilence()
}

func TestAnnihilationEndsImmediately(t *testing.T) {
	srv := newServer(t, Options{Deployment: []game.Placement{
		{Kind: game.Martyr, Owner: game.Black, Position: pos(0, 0)},
		{Kind: game.Pawn, Owner: game.White, Position: pos(0, 1)},
	}})
	black, white := pair(t, srv)

	black.send(protocol.Move(pos(0, 0), pos(0, 1)))
	for _, p := range []*peer{black, white} {
		p.expect(protocol.PieceMoved)
		out := p.expect(protocol.GameEnded).Outcome
		assert.Equal(t, protocol.Annihilation, out.Outcome)
		require.NotNil(t, out.Winner)
		assert.Equal(t, game.Black, *out.Winner)
	}
}

func TestDesertion(t *testing.T) {
	mem := store.NewMemoryStore()
	srv := newServer(t, Options{Standings: mem})
	black, white := pair(t, srv)

	require.NoError(t, black.m.Close())
	out := white.expect(protocol.GameEnded).Outcome
	assert.Equal(t, protocol.Desertion, out.Outcome)
	require.NotNil(t, out.Winner)
	assert.Equal(t, game.White, *out.Winner)

	require.Eventually(t, func() bool { return len(srv.Snapshot()) == 1 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		bob, err := mem.Standing(context.Background(), "bob")
		return err == nil && bob == store.Standing{Player: "bob", Played: 1, Wins: 1}
	}, waitFor, 5*time.Millisecond)
}

func TestBodylessRequestsWhileOpponentLeaves(t *testing.T) {
	srv := newServer(t, Options{})
	black, white := pair(t, srv)

	const burst = 20
	go func() { _ = black.m.Close() }()
	for range burst {
		white.send(protocol.ClientMessage{Type: protocol.MovePiece})
	}

	var errs, ended int
	for errs < burst || ended == 0 {
		switch msg := white.next(); msg.Type {
		case protocol.Error:
			assert.Contains(t, msg.Error.Message, "missing")
			errs++
		case protocol.GameEnded:
			assert.Equal(t, protocol.Desertion, msg.Outcome.Outcome)
			ended++
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
	}
	assert.Equal(t, 1, ended)
	require.Eventually(t, func() bool { return len(srv.Snapshot()) == 1 }, waitFor, 5*time.Millisecond)
}

func TestUnknownMessageTypeDisconnects(t *testing.T) {
	srv := newServer(t, Options{})
	p := connect(t, srv)
	p.send(protocol.ClientMessage{Type: 99})

	select {
	case <-p.m.Done():
	case <-time.After(waitFor):
		t.Fatal("connection stayed open")
	}
	require.Eventually(t, func() bool { return len(srv.Snapshot()) == 0 }, waitFor, 5*time.Millisecond)
}

func TestServeOverTCP(t *testing.T) {
	srv := newServer(t, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	m := wire.New[protocol.ServerMessage, protocol.ClientMessage](conn)
	in := make(chan protocol.ServerMessage, 4)
	go func() {
		_ = m.Run(ctx, func(msg protocol.ServerMessage) error { in <- msg; return nil })
	}()

	require.NoError(t, m.Send(protocol.Play(protocol.PlayerPreferences{ProtocolVersion: 99, PlayerName: "a", GameName: "g"})))
	select {
	case msg := <-in:
		assert.Equal(t, protocol.Error, msg.Type)
	case <-time.After(waitFor):
		t.Fatal("no reply over TCP")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Serve did not stop")
	}
}
