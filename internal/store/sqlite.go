// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening SQLite database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations from sql/*.sql (idempotent, recorded in _migrations).
//   - Saving and loading finished-game results.
//   - Caching Get lookups in a small LRU so the admin API does not hit disk
//     for results it just served.

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var migrations embed.FS

// timeLayout is fixed width so that ORDER BY on the text column is
// chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db    *sql.DB
	mux   sync.Mutex // guards cache
	cache *simplelru.LRU
}

// OpenSQLite opens (creating if missing) the database at dsn, applies
// migrations and returns a ready store. cacheSize <= 0 disables caching.
func OpenSQLite(dsn string, cacheSize int) (*SQLite, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLite{db: db}
	if cacheSize > 0 {
		s.cache, _ = simplelru.NewLRU(cacheSize, nil)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

/**
 * openDB opens (and creates if missing) a SQLite database file.
 *
 * - Ensures parent directory exists for relative DSNs (e.g. ./data/results.db).
 * - Configures busy timeout and WAL journaling mode.
 * - Enforces foreign keys.
 */
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
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
 * migrate applies the embedded SQL migrations.
 *
 * - Uses a _migrations table to track applied files.
 * - Executes each *.sql file in lexical order, each in its own transaction.
 * - Skips files already applied.
 */
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	var files []string
	if err := fs.WalkDir(migrations, "sql", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walk sql dir: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
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

// ------------------------------ results ------------------------------------

// Save inserts or replaces a result row.
func (s *SQLite) Save(ctx context.Context, r *Result) error {
	scores, err := json.Marshal(nonNil(r.Scores))
	if err != nil {
		return err
	}
	winners, err := json.Marshal(nonNil(r.Winners))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO results
            (id, started_at, ended_at, players, scores, winners, turns, reason)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		r.EndedAt.UTC().Format(timeLayout),
		r.Players, string(scores), string(winners), r.Turns, r.Reason,
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", r.ID, err)
	}
	s.mux.Lock()
	if s.cache != nil {
		s.cache.Add(r.ID, clone(r))
	}
	s.mux.Unlock()
	return nil
}

// Get loads a result, serving repeated lookups from the LRU cache.
func (s *SQLite) Get(ctx context.Context, id string) (*Result, error) {
	s.mux.Lock()
	if s.cache != nil {
		if v, ok := s.cache.Get(id); ok {
			s.mux.Unlock()
			return clone(v.(*Result)), nil
		}
	}
	s.mux.Unlock()

	row := s.db.QueryRowContext(ctx, `
        SELECT id, started_at, ended_at, players, scores, winners, turns, reason
        FROM results WHERE id=?`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.mux.Lock()
	if s.cache != nil {
		s.cache.Add(id, clone(r))
	}
	s.mux.Unlock()
	return r, nil
}

// Recent returns the newest results first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, started_at, ended_at, players, scores, winners, turns, reason
        FROM results
        ORDER BY ended_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Result, 0, limit)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (*Result, error) {
	var (
		r               Result
		started, ended  string
		scores, winners string
	)
	if err := row.Scan(&r.ID, &started, &ended, &r.Players, &scores, &winners, &r.Turns, &r.Reason); err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, started)
	r.EndedAt, _ = time.Parse(timeLayout, ended)
	if err := json.Unmarshal([]byte(scores), &r.Scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	if err := json.Unmarshal([]byte(winners), &r.Winners); err != nil {
		return nil, fmt.Errorf("decode winners: %w", err)
	}
	return &r, nil
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
