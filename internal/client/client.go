// internal/client/client.go
//
// Client side of a game connection.
// Responsibilities:
//   - Announce the player's preferences once connected.
//   - Mirror the authoritative game by replaying server broadcasts. Local
//     state only ever changes in response to the server.
//   - Forward move and promotion requests without applying them.
//   - Surface every server message to a callback.

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/protocol"
	"github.com/robalobadob/shashkrid/internal/wire"
)

// ErrDesync means a server broadcast could not be replayed on the mirror.
var ErrDesync = errors.New("client: local game out of sync with server")

// ErrNoGame is returned by requests made outside a game.
var ErrNoGame = errors.New("client: not in a game")

// Handler receives every server message after it has been applied.
type Handler func(msg protocol.ServerMessage)

// Client is one player's connection to a game server.
type Client struct {
	msgr    *wire.Messenger[protocol.ServerMessage, protocol.ClientMessage]
	prefs   protocol.PlayerPreferences
	handler Handler
	log     zerolog.Logger

	mu      sync.Mutex
	game    *game.Game
	colour  game.Colour
	start   protocol.GameStart
	outcome *protocol.GameOutcome
}

// New wraps an established connection. handler may be nil.
func New(rwc io.ReadWriteCloser, prefs protocol.PlayerPreferences, handler Handler) *Client {
	prefs.Normalize()
	if prefs.ProtocolVersion == 0 {
		prefs.ProtocolVersion = protocol.Version
	}
	if handler == nil {
		handler = func(protocol.ServerMessage) {}
	}
	lg := log.With().Str("player", prefs.PlayerName).Logger()
	return &Client{
		msgr:    wire.New[protocol.ServerMessage, protocol.ClientMessage](rwc, wire.WithLogger(lg)),
		prefs:   prefs,
		handler: handler,
		log:     lg,
	}
}

// Dial connects to a server over TCP.
func Dial(ctx context.Context, addr string, prefs protocol.PlayerPreferences, handler Handler) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return New(conn, prefs, handler), nil
}

// Run sends the play request and processes server messages until the
// connection ends. A desynchronised mirror ends it with ErrDesync.
func (c *Client) Run(ctx context.Context) error {
	if err := c.msgr.Send(protocol.Play(c.prefs)); err != nil {
		return err
	}
	return c.msgr.Run(ctx, c.receive)
}

// Replay requests a new game with the same preferences.
func (c *Client) Replay() error {
	return c.msgr.Send(protocol.Play(c.prefs))
}

// Move asks the server to move the piece on src to dst.
func (c *Client) Move(src, dst game.Position) error {
	if !c.InGame() {
		return ErrNoGame
	}
	return c.msgr.Send(protocol.Move(src, dst))
}

// Promote asks the server to promote the pawn on at.
func (c *Client) Promote(at game.Position, kind game.PieceKind) error {
	if !c.InGame() {
		return ErrNoGame
	}
	return c.msgr.Send(protocol.Promote(at, kind))
}

// Close drops the connection. The server treats it as desertion when a game
// is running.
func (c *Client) Close() error { return c.msgr.Close() }

func (c *Client) receive(msg protocol.ServerMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := c.apply(msg); err != nil {
		c.log.Error().Err(err).Str("type", msg.Type.String()).Msg("replay failed")
		return err
	}
	c.handler(msg)
	return nil
}

func (c *Client) apply(msg protocol.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case protocol.GameStarted:
		g, err := game.New(msg.Start.Rules(), msg.Start.Deployment)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDesync, err)
		}
		c.game, c.start, c.outcome = g, *msg.Start, nil
		c.colour = game.White
		if msg.Start.Black.Name == c.prefs.PlayerName {
			c.colour = game.Black
		}
		return nil
	case protocol.Error:
		c.log.Warn().Str("reason", msg.Error.Message).Msg("server rejected request")
		return nil
	}

	if c.game == nil {
		return fmt.Errorf("%w: %s outside a game", ErrDesync, msg.Type)
	}
	switch msg.Type {
	case protocol.NewTurn:
		if c.game.Active() != msg.Turn.Active {
			c.game.NewTurn()
		}
		if c.game.Active() != msg.Turn.Active {
			return fmt.Errorf("%w: turn for %s", ErrDesync, msg.Turn.Active)
		}
	case protocol.PieceMoved:
		if err := c.game.MovePiece(msg.Move.Source, msg.Move.Destination); err != nil {
			return fmt.Errorf("%w: move %s->%s: %v", ErrDesync, msg.Move.Source, msg.Move.Destination, err)
		}
	case protocol.PiecePromoted:
		if err := c.game.PromotePiece(msg.Promotion.Position, msg.Promotion.Kind); err != nil {
			return fmt.Errorf("%w: promote %s: %v", ErrDesync, msg.Promotion.Position, err)
		}
	case protocol.GameEnded:
		out := *msg.Outcome
		c.outcome = &out
		c.game = nil
	}
	return nil
}

// InGame reports whether a game is running.
func (c *Client) InGame() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game != nil
}

// State is a snapshot of the mirrored game.
type State struct {
	InGame   bool
	Colour   game.Colour
	Opponent string
	Active   game.Colour
	Turn     int
	Actions  int
	Rules    game.Rules
	Pieces   []game.Piece
	Outcome  *protocol.GameOutcome // last finished game, if any
}

// YourTurn reports whether the local player may act.
func (s State) YourTurn() bool { return s.InGame && s.Active == s.Colour }

// State returns a snapshot of the mirror.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{Colour: c.colour, Outcome: c.outcome}
	if c.game == nil {
		return st
	}
	st.InGame = true
	st.Opponent = c.start.White.Name
	if c.colour == game.White {
		st.Opponent = c.start.Black.Name
	}
	st.Active = c.game.Active()
	st.Turn = c.game.Turn()
	st.Actions = c.game.Actions()
	st.Rules = c.game.Rules()
	st.Pieces = append(c.game.Pieces(game.Black), c.game.Pieces(game.White)...)
	return st
}

// Reachable lists where the piece on p could move, as the mirror sees it.
func (c *Client) Reachable(p game.Position) []game.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.game == nil {
		return nil
	}
	return c.game.Reachable(p)
}
