// internal/gameserver/session.go
//
// Per-connection protocol state machine.
//
//	connected --play--> waiting --opponent joins--> in game
//	connected --play, opponent waiting--> in game
//	in game --game ends--> connected
//	any --disconnect--> removed (in game: opponent wins by desertion)
//
// Every handler runs with the registry lock held, so the two sessions of a
// game never mutate it concurrently.

package gameserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/protocol"
	"github.com/robalobadob/shashkrid/internal/store"
	"github.com/robalobadob/shashkrid/internal/wire"
)

var (
	ErrProtocolVersion = errors.New("unsupported protocol version")
	ErrPlayerName      = fmt.Errorf("player name must be 1 to %d bytes", protocol.NameLimit)
	ErrGameName        = fmt.Errorf("game name must be 1 to %d bytes", protocol.NameLimit)
	ErrNameInUse       = errors.New("player name already in use")
	ErrNotYourTurn     = errors.New("it is not your turn")
	ErrUnexpected      = errors.New("message not allowed in this state")
)

type state uint8

const (
	stateConnected state = iota
	stateWaiting
	stateInGame
)

func (s state) String() string {
	switch s {
	case stateWaiting:
		return "waiting"
	case stateInGame:
		return "in_game"
	}
	return "connected"
}

// Session is one client connection.
type Session struct {
	id          uuid.UUID
	remote      string
	server      *Server
	msgr        *wire.Messenger[protocol.ClientMessage, protocol.ServerMessage]
	baseLog     zerolog.Logger
	connectedAt time.Time

	// Guarded by server.mu.
	log          zerolog.Logger
	state        state
	prefs        protocol.PlayerPreferences
	waitingSince time.Time
	colour       game.Colour
	opponent     *Session
	game         *game.Game
}

type handler struct {
	state state
	fn    func(*Session, protocol.ClientMessage) error
}

var handlers = map[protocol.ClientMessageType]handler{
	protocol.PlayGame:     {stateConnected, (*Session).playGame},
	protocol.MovePiece:    {stateInGame, (*Session).movePiece},
	protocol.PromotePiece: {stateInGame, (*Session).promotePiece},
}

// handle processes one inbound message. Only envelope violations are returned
// (and end the connection); rule violations are answered with an error reply.
func (s *Session) handle(msg protocol.ClientMessage) error {
	s.server.mu.Lock()
	defer s.server.mu.Unlock()

	if err := msg.Validate(); err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			return err
		}
		s.reject(err)
		return nil
	}

	h := handlers[msg.Type]
	if s.state != h.state {
		s.reject(fmt.Errorf("%w: %s while %s", ErrUnexpected, msg.Type, s.state))
		return nil
	}
	if err := h.fn(s, msg); err != nil {
		s.reject(err)
	}
	return nil
}

// reject answers with an error reply. Caller holds mu.
func (s *Session) reject(err error) {
	s.log.Debug().Err(err).Msg("request rejected")
	s.send(protocol.Errorf("%s", err))
}

func (s *Session) send(msg protocol.ServerMessage) {
	if err := s.msgr.Send(msg); err != nil && !errors.Is(err, wire.ErrClosed) {
		s.log.Warn().Err(err).Str("type", msg.Type.String()).Msg("send failed")
	}
}

// broadcast sends msg to this session and its opponent.
func (s *Session) broadcast(msg protocol.ServerMessage) {
	s.send(msg)
	if s.opponent != nil {
		s.opponent.send(msg)
	}
}

func (s *Session) playGame(msg protocol.ClientMessage) error {
	p := *msg.Preferences
	p.Normalize()
	switch {
	case p.ProtocolVersion != protocol.Version:
		return fmt.Errorf("%w: got %d, want %d", ErrProtocolVersion, p.ProtocolVersion, protocol.Version)
	case p.PlayerName == "" || len(p.PlayerName) > protocol.NameLimit:
		return ErrPlayerName
	case p.GameName == "" || len(p.GameName) > protocol.NameLimit:
		return ErrGameName
	case s.server.nameInUse(p.PlayerName, s):
		return fmt.Errorf("%w: %q", ErrNameInUse, p.PlayerName)
	}

	s.prefs = p
	s.log = s.log.With().Str("player", p.PlayerName).Logger()

	opp := s.server.findWaiting(p.GameName, s)
	if opp == nil {
		s.state = stateWaiting
		s.waitingSince = time.Now()
		s.log.Info().Str("game", p.GameName).Msg("waiting for opponent")
		return nil
	}
	return s.server.startGame(opp, s)
}

// startGame pairs a waiting session with a newcomer. Caller holds mu.
func (s *Server) startGame(waiting, joining *Session) error {
	g, err := game.New(s.rules, s.deployment)
	if err != nil {
		return fmt.Errorf("start game: %w", err)
	}

	black, white := waiting, joining
	if waiting.prefs.WantsBlack == joining.prefs.WantsBlack {
		if s.coin() {
			black, white = joining, waiting
		}
	} else if joining.prefs.WantsBlack {
		black, white = joining, waiting
	}

	for _, pair := range [2][2]*Session{{black, white}, {white, black}} {
		me, them := pair[0], pair[1]
		me.state = stateInGame
		me.opponent = them
		me.game = g
		me.waitingSince = time.Time{}
	}
	black.colour, white.colour = game.Black, game.White

	s.metrics.GamesStarted.Inc()
	s.log.Info().
		Str("game", black.prefs.GameName).
		Str("black", black.prefs.PlayerName).
		Str("white", white.prefs.PlayerName).
		Msg("game started")

	rules := g.Rules()
	black.broadcast(protocol.Started(protocol.GameStart{
		Black:          protocol.PlayerDescription{Name: black.prefs.PlayerName},
		White:          protocol.PlayerDescription{Name: white.prefs.PlayerName},
		ActionsPerTurn: rules.ActionsPerTurn,
		TurnLimit:      rules.TurnLimit,
		Deployment:     s.deployment,
	}))
	black.broadcast(protocol.Turn(g.Active()))
	return nil
}

func (s *Session) movePiece(msg protocol.ClientMessage) error {
	if s.colour != s.game.Active() {
		return ErrNotYourTurn
	}
	mv := *msg.Move
	if err := s.game.MovePiece(mv.Source, mv.Destination); err != nil {
		return err
	}
	s.broadcast(protocol.Moved(mv))
	s.afterAction()
	return nil
}

func (s *Session) promotePiece(msg protocol.ClientMessage) error {
	if s.colour != s.game.Active() {
		return ErrNotYourTurn
	}
	pr := *msg.Promotion
	if err := s.game.PromotePiece(pr.Position, pr.Kind); err != nil {
		return err
	}
	s.broadcast(protocol.Promoted(pr))
	s.afterAction()
	return nil
}

// afterAction ends the game on annihilation, or the turn once the active
// player has no actions left.
func (s *Session) afterAction() {
	g := s.game
	if g.IsAnnihilation() {
		winner, _ := g.Winner()
		s.endGame(protocol.Annihilation, &winner)
		return
	}
	if !g.NoActionsLeft() {
		return
	}
	if g.TurnLimitReached() {
		if g.IsDomination() {
			winner, _ := g.Winner()
			s.endGame(protocol.Domination, &winner)
		} else {
			s.endGame(protocol.Draw, nil)
		}
		return
	}
	g.NewTurn()
	s.broadcast(protocol.Turn(g.Active()))
}

// endGame announces the outcome to both players and returns them to the
// connected state.
func (s *Session) endGame(kind protocol.OutcomeKind, winner *game.Colour) {
	s.broadcast(protocol.Ended(kind, winner))
	s.finish(kind, winner)
}

// finish records the outcome and resets both sessions. Caller holds mu.
func (s *Session) finish(kind protocol.OutcomeKind, winner *game.Colour) {
	opp := s.opponent
	result := store.Result{}
	result.Players[s.colour] = s.prefs.PlayerName
	result.Players[opp.colour] = opp.prefs.PlayerName
	if winner != nil {
		result.Winner = result.Players[*winner]
	}

	ev := s.server.log.Info().
		Str("game", s.prefs.GameName).
		Str("outcome", kind.String()).
		Int("turn", s.game.Turn())
	if winner != nil {
		ev = ev.Str("winner", result.Winner)
	}
	ev.Msg("game ended")

	s.server.metrics.GamesEnded.WithLabelValues(kind.String()).Inc()
	s.server.record(result)
	s.reset()
	opp.reset()
}

func (s *Session) reset() {
	s.state = stateConnected
	s.prefs = protocol.PlayerPreferences{}
	s.waitingSince = time.Time{}
	s.opponent = nil
	s.game = nil
	s.log = s.baseLog
}

// disconnected hands the game to the opponent by desertion. Caller holds mu.
func (s *Session) disconnected() {
	if s.state != stateInGame {
		return
	}
	winner := s.opponent.colour
	s.opponent.send(protocol.Won(protocol.Desertion, winner))
	s.finish(protocol.Desertion, &winner)
}

// info snapshots the session. Caller holds mu.
func (s *Session) info() SessionInfo {
	si := SessionInfo{
		ID:          s.id.String(),
		Remote:      s.remote,
		State:       s.state.String(),
		Player:      s.prefs.PlayerName,
		Game:        s.prefs.GameName,
		ConnectedAt: s.connectedAt,
	}
	if s.state == stateInGame {
		si.Colour = s.colour.String()
		si.Opponent = s.opponent.prefs.PlayerName
		si.Turn = s.game.Turn()
	}
	return si
}
