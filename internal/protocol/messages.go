// internal/protocol/messages.go
//
// Typed messages exchanged between client and server.
// Defines:
//   - ClientMessage: play request, move and promotion (client -> server).
//   - ServerMessage: error, game started, new turn, piece moved, piece
//     promoted and game ended (server -> client).
//
// Both are envelopes with a Type tag and one body pointer per kind. Payloads
// are CBOR maps with integer keys and travel inside wire frames.

package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robalobadob/shashkrid/internal/game"
)

// Version is the protocol version a client must announce in its play request.
const Version = 1

// NameLimit is the maximum length in bytes of a player or game name.
const NameLimit = 100

var (
	ErrUnknownType = errors.New("protocol: unknown message type")
	ErrMissingBody = errors.New("protocol: message body missing")
)

// ClientMessageType tags a ClientMessage.
type ClientMessageType uint8

const (
	PlayGame ClientMessageType = iota + 1
	MovePiece
	PromotePiece
)

func (t ClientMessageType) String() string {
	switch t {
	case PlayGame:
		return "play_game"
	case MovePiece:
		return "move_piece"
	case PromotePiece:
		return "promote_piece"
	}
	return fmt.Sprintf("client_message(%d)", uint8(t))
}

// ServerMessageType tags a ServerMessage.
type ServerMessageType uint8

const (
	Error ServerMessageType = iota + 1
	GameStarted
	NewTurn
	PieceMoved
	PiecePromoted
	GameEnded
)

func (t ServerMessageType) String() string {
	switch t {
	case Error:
		return "error"
	case GameStarted:
		return "game_started"
	case NewTurn:
		return "new_turn"
	case PieceMoved:
		return "piece_moved"
	case PiecePromoted:
		return "piece_promoted"
	case GameEnded:
		return "game_ended"
	}
	return fmt.Sprintf("server_message(%d)", uint8(t))
}

// OutcomeKind is how a game ended.
type OutcomeKind uint8

const (
	Annihilation OutcomeKind = iota + 1
	Domination
	Desertion
	Draw
)

func (k OutcomeKind) String() string {
	switch k {
	case Annihilation:
		return "annihilation"
	case Domination:
		return "domination"
	case Desertion:
		return "desertion"
	case Draw:
		return "draw"
	}
	return fmt.Sprintf("outcome(%d)", uint8(k))
}

// PlayerPreferences is the body of a play request.
type PlayerPreferences struct {
	ProtocolVersion int    `cbor:"1,keyasint"`
	PlayerName      string `cbor:"2,keyasint"`
	GameName        string `cbor:"3,keyasint"`
	WantsBlack      bool   `cbor:"4,keyasint"`
}

// Normalize trims surrounding whitespace from both names.
func (p *PlayerPreferences) Normalize() {
	p.PlayerName = strings.TrimSpace(p.PlayerName)
	p.GameName = strings.TrimSpace(p.GameName)
}

// PieceMove is a move request and its broadcast echo.
type PieceMove struct {
	Source      game.Position `cbor:"1,keyasint"`
	Destination game.Position `cbor:"2,keyasint"`
}

// PiecePromotion is a promotion request and its broadcast echo.
type PiecePromotion struct {
	Position game.Position  `cbor:"1,keyasint"`
	Kind     game.PieceKind `cbor:"2,keyasint"`
}

// ErrorReport carries a human-readable, non-fatal error.
type ErrorReport struct {
	Message string `cbor:"1,keyasint"`
}

// PlayerDescription identifies a participant.
type PlayerDescription struct {
	Name string `cbor:"1,keyasint"`
}

// GameStart announces a pairing. The rules and deployment let clients run an
// identical engine.
type GameStart struct {
	Black          PlayerDescription `cbor:"1,keyasint"`
	White          PlayerDescription `cbor:"2,keyasint"`
	ActionsPerTurn int               `cbor:"3,keyasint"`
	TurnLimit      int               `cbor:"4,keyasint"`
	Deployment     []game.Placement  `cbor:"5,keyasint"`
}

// Rules returns the engine limits announced in s.
func (s GameStart) Rules() game.Rules {
	return game.Rules{ActionsPerTurn: s.ActionsPerTurn, TurnLimit: s.TurnLimit}
}

// TurnStart names the player whose turn begins.
type TurnStart struct {
	Active game.Colour `cbor:"1,keyasint"`
}

// GameOutcome reports the end of a game. Winner is nil for a draw.
type GameOutcome struct {
	Outcome OutcomeKind  `cbor:"1,keyasint"`
	Winner  *game.Colour `cbor:"2,keyasint,omitempty"`
}

// ClientMessage is the client -> server envelope.
type ClientMessage struct {
	Type        ClientMessageType  `cbor:"1,keyasint"`
	Preferences *PlayerPreferences `cbor:"2,keyasint,omitempty"`
	Move        *PieceMove         `cbor:"3,keyasint,omitempty"`
	Promotion   *PiecePromotion    `cbor:"4,keyasint,omitempty"`
}

// Validate checks that the type is known and its body present. An unknown type
// yields ErrUnknownType, a missing body ErrMissingBody.
func (m ClientMessage) Validate() error {
	var present bool
	switch m.Type {
	case PlayGame:
		present = m.Preferences != nil
	case MovePiece:
		present = m.Move != nil
	case PromotePiece:
		present = m.Promotion != nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, uint8(m.Type))
	}
	if !present {
		return fmt.Errorf("%w: %s", ErrMissingBody, m.Type)
	}
	return nil
}

// ServerMessage is the server -> client envelope.
type ServerMessage struct {
	Type      ServerMessageType `cbor:"1,keyasint"`
	Error     *ErrorReport      `cbor:"2,keyasint,omitempty"`
	Start     *GameStart        `cbor:"3,keyasint,omitempty"`
	Turn      *TurnStart        `cbor:"4,keyasint,omitempty"`
	Move      *PieceMove        `cbor:"5,keyasint,omitempty"`
	Promotion *PiecePromotion   `cbor:"6,keyasint,omitempty"`
	Outcome   *GameOutcome      `cbor:"7,keyasint,omitempty"`
}

// Validate mirrors ClientMessage.Validate for the server envelope.
func (m ServerMessage) Validate() error {
	var present bool
	switch m.Type {
	case Error:
		present = m.Error != nil
	case GameStarted:
		present = m.Start != nil
	case NewTurn:
		present = m.Turn != nil
	case PieceMoved:
		present = m.Move != nil
	case PiecePromoted:
		present = m.Promotion != nil
	case GameEnded:
		present = m.Outcome != nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, uint8(m.Type))
	}
	if !present {
		return fmt.Errorf("%w: %s", ErrMissingBody, m.Type)
	}
	return nil
}

// Constructors for the client envelope.

func Play(p PlayerPreferences) ClientMessage {
	return ClientMessage{Type: PlayGame, Preferences: &p}
}

func Move(src, dst game.Position) ClientMessage {
	return ClientMessage{Type: MovePiece, Move: &PieceMove{Source: src, Destination: dst}}
}

func Promote(at game.Position, kind game.PieceKind) ClientMessage {
	return ClientMessage{Type: PromotePiece, Promotion: &PiecePromotion{Position: at, Kind: kind}}
}

// Constructors for the server envelope.

func Errorf(format string, args ...any) ServerMessage {
	return ServerMessage{Type: Error, Error: &ErrorReport{Message: fmt.Sprintf(format, args...)}}
}

func Started(s GameStart) ServerMessage {
	return ServerMessage{Type: GameStarted, Start: &s}
}

func Turn(active game.Colour) ServerMessage {
	return ServerMessage{Type: NewTurn, Turn: &TurnStart{Active: active}}
}

func Moved(mv PieceMove) ServerMessage {
	return ServerMessage{Type: PieceMoved, Move: &mv}
}

func Promoted(p PiecePromotion) ServerMessage {
	return ServerMessage{Type: PiecePromoted, Promotion: &p}
}

// Ended builds a GameEnded message. A nil winner encodes a draw.
func Ended(kind OutcomeKind, winner *game.Colour) ServerMessage {
	return ServerMessage{Type: GameEnded, Outcome: &GameOutcome{Outcome: kind, Winner: winner}}
}

// Won is Ended with a definite winner.
func Won(kind OutcomeKind, winner game.Colour) ServerMessage {
	return Ended(kind, &winner)
}
