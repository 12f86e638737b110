// internal/httpserver/server.go
//
// HTTP operations surface for the game server.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/status", "/standings", "/standings/{player}".
//   - Admin endpoints: POST /admin/login (bcrypt), GET /admin/sessions (JWT).
//   - Prometheus metrics at /metrics.
//   - A WebSocket transport for the game protocol at /ws.
//
// Notes:
//   - /ws is mounted outside the timeout middleware; a game can last far
//     longer than any request.
//   - Request contexts derive from the context passed to Serve, so shutting
//     down also ends WebSocket sessions.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/shashkrid/internal/gameserver"
	"github.com/robalobadob/shashkrid/internal/store"
)

const (
	defaultStandingsLimit = 20
	maxStandingsLimit     = 100
	shutdownGrace         = 5 * time.Second
)

// Options are the dependencies of the HTTP surface.
type Options struct {
	Games             *gameserver.Server
	Standings         store.Store
	Gatherer          prometheus.Gatherer // nil disables /metrics
	ClientOrigin      string
	JWTSecret         string
	AdminPasswordHash string // bcrypt; empty disables admin login
	TokenTTL          time.Duration
}

// Server bundles the router and its dependencies.
type Server struct {
	r    *chi.Mux
	opts Options
	ws   websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	s := &Server{r: chi.NewRouter(), opts: opts}
	s.ws = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Long-lived game transport.
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"shashkrid","endpoints":["/health","/status","/standings","/standings/{player}","POST /admin/login","/admin/sessions","/metrics","/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/status", s.handleStatus)

		r.Get("/standings", s.handleTop)
		r.Get("/standings/{player}", s.handleStanding)

		r.Post("/admin/login", s.handleLogin)
		r.With(s.requireAuth()).Get("/admin/sessions", s.handleSessions)

		if s.opts.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
		}

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("http listener started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin. Without
// one, CORS is off and preflight requests reach the router like any other.
func (s *Server) cors(next http.Handler) http.Handler {
	if s.opts.ClientOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.opts.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin admits native clients (no Origin header) and the configured
// browser origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.opts.ClientOrigin == "" || origin == s.opts.ClientOrigin
}

// ------------------------------ handlers -----------------------------------

type statusRes struct {
	Sessions       int `json:"sessions"`
	Waiting        int `json:"waiting"`
	InGame         int `json:"inGame"`
	ActionsPerTurn int `json:"actionsPerTurn"`
	TurnLimit      int `json:"turnLimit"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.Games.Snapshot()
	rules := s.opts.Games.Rules()
	res := statusRes{Sessions: len(snap), ActionsPerTurn: rules.ActionsPerTurn, TurnLimit: rules.TurnLimit}
	for _, si := range snap {
		switch si.State {
		case "waiting":
			res.Waiting++
		case "in_game":
			res.InGame++
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	if s.opts.Standings == nil {
		_, _ = w.Write([]byte(`[]`))
		return
	}
	limit := defaultStandingsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, maxStandingsLimit)
	}
	top, err := s.opts.Standings.Top(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("load standings")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(top)
}

func (s *Server) handleStanding(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	if s.opts.Standings == nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	st, err := s.opts.Standings.Standing(r.Context(), player)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("player", player).Msg("load standing")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.opts.Games.Snapshot())
}
