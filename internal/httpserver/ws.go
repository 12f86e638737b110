package httpserver

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/shashkrid/internal/wire"
)

// handleWS upgrades to a WebSocket and serves the game protocol over it. The
// handler blocks for the lifetime of the session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.ws.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn := wire.NewWSConn(ws)
	_ = s.opts.Games.ServeConn(r.Context(), conn, "ws:"+conn.RemoteAddr())
}
