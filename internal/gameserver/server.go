// internal/gameserver/server.go
//
// Matchmaking registry and connection acceptor.
// Responsibilities:
//   - Accept TCP connections (Serve) or serve any byte stream (ServeConn).
//   - Track every connected session and pair waiting players by game name.
//   - Serialize all game-affecting handling under one registry lock.
//   - Report finished games to the standings store, best effort.

package gameserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/shashkrid/internal/game"
	"github.com/robalobadob/shashkrid/internal/protocol"
	"github.com/robalobadob/shashkrid/internal/store"
	"github.com/robalobadob/shashkrid/internal/wire"
)

const recordTimeout = 5 * time.Second

// Options configure a Server. Zero values fall back to defaults.
type Options struct {
	Rules      game.Rules
	Deployment []game.Placement
	Standings  store.Store // nil disables standings
	Metrics    *Metrics
	MaxQueued  int // per-connection outbound bound, 0 = unbounded
	Logger     *zerolog.Logger
	Rand       *rand.Rand // colour draws when both players want the same colour
}

// Server owns all sessions and the games between them.
type Server struct {
	rules      game.Rules
	deployment []game.Placement
	standings  store.Store
	metrics    *Metrics
	maxQueued  int
	log        zerolog.Logger

	mu       sync.Mutex // registry lock: sessions and every session's game state
	sessions map[uuid.UUID]*Session
	rng      *rand.Rand

	conns   sync.WaitGroup // connections accepted by Serve
	pending sync.WaitGroup // standings writes in flight
}

// New validates the rules and deployment by building a game from them.
func New(opts Options) (*Server, error) {
	if opts.Rules == (game.Rules{}) {
		opts.Rules = game.DefaultRules()
	}
	if opts.Deployment == nil {
		opts.Deployment = game.DefaultDeployment()
	}
	if _, err := game.New(opts.Rules, opts.Deployment); err != nil {
		return nil, fmt.Errorf("gameserver: %w", err)
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	lg := log.Logger
	if opts.Logger != nil {
		lg = *opts.Logger
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Server{
		rules:      opts.Rules,
		deployment: opts.Deployment,
		standings:  opts.Standings,
		metrics:    opts.Metrics,
		maxQueued:  opts.MaxQueued,
		log:        lg,
		sessions:   make(map[uuid.UUID]*Session),
		rng:        rng,
	}, nil
}

// Rules returns the limits every match is played with.
func (s *Server) Rules() game.Rules { return s.rules }

// Serve accepts connections on ln until ctx is cancelled, then waits for the
// open sessions to finish. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("game listener started")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.conns.Wait()
				s.pending.Wait()
				return nil
			}
			return fmt.Errorf("gameserver: accept: %w", err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			_ = s.ServeConn(ctx, conn, conn.RemoteAddr().String())
		}()
	}
}

// ServeConn runs one session over rwc until it disconnects or ctx ends.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser, remote string) error {
	sess := s.register(rwc, remote)
	sess.log.Info().Msg("client connected")

	err := sess.msgr.Run(ctx, sess.handle)
	s.unregister(sess)

	if err != nil {
		if isViolation(err) {
			s.metrics.ProtocolViolations.Inc()
		}
		sess.log.Warn().Err(err).Msg("connection terminated")
		return err
	}
	sess.log.Info().Msg("client disconnected")
	return nil
}

func isViolation(err error) bool {
	return errors.Is(err, wire.ErrFrameTooLarge) ||
		errors.Is(err, wire.ErrMalformedPayload) ||
		errors.Is(err, protocol.ErrUnknownType)
}

func (s *Server) register(rwc io.ReadWriteCloser, remote string) *Session {
	id := uuid.New()
	lg := s.log.With().Str("session", id.String()).Str("remote", remote).Logger()
	sess := &Session{
		id:          id,
		remote:      remote,
		server:      s,
		log:         lg,
		baseLog:     lg,
		connectedAt: time.Now().UTC(),
	}
	sess.msgr = wire.New[protocol.ClientMessage, protocol.ServerMessage](rwc,
		wire.WithMaxQueued(s.maxQueued),
		wire.WithLogger(lg),
	)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.metrics.SessionsConnected.Inc()
	return sess
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	sess.disconnected()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	s.metrics.SessionsConnected.Dec()
}

// nameInUse reports whether another session has claimed name. Caller holds mu.
func (s *Server) nameInUse(name string, except *Session) bool {
	for _, o := range s.sessions {
		if o != except && o.state != stateConnected && o.prefs.PlayerName == name {
			return true
		}
	}
	return false
}

// findWaiting returns the oldest session waiting in gameName. Caller holds mu.
func (s *Server) findWaiting(gameName string, except *Session) *Session {
	var found *Session
	for _, o := range s.sessions {
		if o == except || o.state != stateWaiting || o.prefs.GameName != gameName {
			continue
		}
		if found == nil || o.waitingSince.Before(found.waitingSince) {
			found = o
		}
	}
	return found
}

// coin returns true with probability one half. Caller holds mu.
func (s *Server) coin() bool { return s.rng.IntN(2) == 0 }

// record stores a finished game in the background. Failures are only logged.
func (s *Server) record(r store.Result) {
	if s.standings == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.standings.Record(ctx, r); err != nil {
			s.log.Error().Err(err).Strs("players", r.Players[:]).Msg("failed to record result")
		}
	}()
}

// SessionInfo is a read-only view of one session.
type SessionInfo struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	State       string    `json:"state"`
	Player      string    `json:"player,omitempty"`
	Game        string    `json:"game,omitempty"`
	Colour      string    `json:"colour,omitempty"`
	Opponent    string    `json:"opponent,omitempty"`
	Turn        int       `json:"turn,omitempty"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Snapshot lists the connected sessions, oldest first.
func (s *Server) Snapshot() []SessionInfo {
	s.mu.Lock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
