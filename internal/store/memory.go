// internal/store/memory.go
//
// Standings persistence for finished games.
// Only aggregate counters per player are kept (played, wins, losses, draws);
// individual games and their moves are never stored.
//
// Characteristics of the in-memory implementation:
//   - Standings keyed by player name in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNotFound      = errors.New("store: player not found")
	ErrInvalidResult = errors.New("store: invalid result")
)

// Standing is the running record of one player.
type Standing struct {
	Player string `db:"player" json:"player"`
	Played int    `db:"played" json:"played"`
	Wins   int    `db:"wins" json:"wins"`
	Losses int    `db:"losses" json:"losses"`
	Draws  int    `db:"draws" json:"draws"`
}

// Result is the final score of one finished game.
type Result struct {
	Players [2]string // both participants
	Winner  string    // empty for a draw
}

// Validate checks both names are set and distinct and the winner took part.
func (r Result) Validate() error {
	a, b := r.Players[0], r.Players[1]
	if a == "" || b == "" || a == b {
		return fmt.Errorf("%w: players %q and %q", ErrInvalidResult, a, b)
	}
	if r.Winner != "" && r.Winner != a && r.Winner != b {
		return fmt.Errorf("%w: winner %q did not play", ErrInvalidResult, r.Winner)
	}
	return nil
}

// delta returns the counter increments for player.
func (r Result) delta(player string) (wins, losses, draws int) {
	switch r.Winner {
	case "":
		return 0, 0, 1
	case player:
		return 1, 0, 0
	}
	return 0, 1, 0
}

// Store persists standings.
// Implementations are backed by memory (this file) or SQLite (sqlite.go).
type Store interface {
	// Record applies a finished game to both players' standings.
	Record(ctx context.Context, r Result) error

	// Standing returns one player's record, or ErrNotFound.
	Standing(ctx context.Context, player string) (Standing, error)

	// Top returns up to limit standings, most wins first, fewer games played
	// breaking ties, then player name.
	Top(ctx context.Context, limit int) ([]Standing, error)

	Close() error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu        sync.RWMutex         // guards standings map
	standings map[string]*Standing // keyed by player name
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{standings: make(map[string]*Standing)}
}

func (m *memory) Record(_ context.Context, r Result) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range r.Players {
		s, ok := m.standings[p]
		if !ok {
			s = &Standing{Player: p}
			m.standings[p] = s
		}
		w, l, d := r.delta(p)
		s.Played++
		s.Wins += w
		s.Losses += l
		s.Draws += d
	}
	return nil
}

func (m *memory) Standing(_ context.Context, player string) (Standing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.standings[player]; ok {
		return *s, nil
	}
	return Standing{}, ErrNotFound
}

func (m *memory) Top(_ context.Context, limit int) ([]Standing, error) {
	m.mu.RLock()
	out := make([]Standing, 0, len(m.standings))
	for _, s := range m.standings {
		out = append(out, *s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Played != b.Played {
			return a.Played < b.Played
		}
		return a.Player < b.Player
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) Close() error { return nil }
