// internal/store/sqlite.go
//
// SQLite-backed Store.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Upserting aggregate standings inside one transaction per finished game.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type sqliteStore struct {
	db *sqlx.DB
}

/**
 * OpenSQLite opens (creating if missing) the database at path and applies
 * every migration in migrations that has not run yet.
 *
 * - Ensures the parent directory exists for relative paths (e.g. ./data/app.db).
 * - Configures busy timeout and WAL journaling mode.
 */
func OpenSQLite(path string, migrations fs.FS) (Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db, migrations); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func openDB(path string) (*sqlx.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

/**
 * migrate applies *.sql files from fsys in lexical order.
 *
 * - Uses a _migrations table to track applied files.
 * - Scripts that manage their own transaction (BEGIN TRANSACTION) run as-is,
 *   everything else runs inside a dedicated transaction.
 */
func migrate(db *sqlx.DB, fsys fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		var n int
		if err := db.Get(&n, `SELECT COUNT(1) FROM _migrations WHERE name = ?`, f); err != nil {
			return fmt.Errorf("check %s: %w", f, err)
		}
		if n > 0 {
			continue
		}

		raw, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		sqlText := string(raw)

		if strings.Contains(strings.ToUpper(sqlText), "BEGIN TRANSACTION") {
			if _, err := db.Exec(sqlText); err != nil {
				return fmt.Errorf("apply %s: %w", f, err)
			}
			if _, err := db.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
				return fmt.Errorf("record %s: %w", f, err)
			}
			log.Info().Str("migration", f).Msg("applied (self-managed)")
			continue
		}

		tx, err := db.Beginx()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqlText); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

const upsertStanding = `
    INSERT INTO standings (player, played, wins, losses, draws)
    VALUES (?, 1, ?, ?, ?)
    ON CONFLICT(player) DO UPDATE SET
        played     = played + 1,
        wins       = wins + excluded.wins,
        losses     = losses + excluded.losses,
        draws      = draws + excluded.draws,
        updated_at = CURRENT_TIMESTAMP`

func (s *sqliteStore) Record(ctx context.Context, r Result) error {
	if err := r.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range r.Players {
		w, l, d := r.delta(p)
		if _, err := tx.ExecContext(ctx, upsertStanding, p, w, l, d); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", p, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Standing(ctx context.Context, player string) (Standing, error) {
	var st Standing
	err := s.db.GetContext(ctx, &st,
		`SELECT player, played, wins, losses, draws FROM standings WHERE player = ?`, player)
	if errors.Is(err, sql.ErrNoRows) {
		return Standing{}, ErrNotFound
	}
	return st, err
}

func (s *sqliteStore) Top(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	out := []Standing{}
	err := s.db.SelectContext(ctx, &out, `
        SELECT player, played, wins, losses, draws
        FROM standings
        ORDER BY wins DESC, played ASC, player ASC
        LIMIT ?`, limit)
	return out, err
}

func (s *sqliteStore) Close() error { return s.db.Close() }
