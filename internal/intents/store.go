package intents

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Intent records one capture that was in flight.
type Intent struct {
	Target       string
	ChannelLogin string
	ChannelName  string
	Quality      string
	CapturedAt   time.Time
}

// Store manages recovery-intent persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS recovery_intents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    target TEXT NOT NULL,
    channel_login TEXT NOT NULL,
    channel_name TEXT NOT NULL,
    quality TEXT NOT NULL,
    captured_at TEXT NOT NULL
);
`

// Open initializes or connects to the intent database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Replace swaps the stored intent set for the given one in a single
// transaction, so readers never observe a partial snapshot.
func (s *Store) Replace(ctx context.Context, set []Intent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin intent transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recovery_intents`); err != nil {
		return fmt.Errorf("clear intents: %w", err)
	}
	for _, intent := range set {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO recovery_intents (target, channel_login, channel_name, quality, captured_at)
             VALUES (?, ?, ?, ?, ?)`,
			intent.Target,
			intent.ChannelLogin,
			intent.ChannelName,
			intent.Quality,
			intent.CapturedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert intent for %s: %w", intent.ChannelLogin, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit intents: %w", err)
	}
	return nil
}

// Consume returns the stored intents and clears them, so a crash loop cannot
// replay the same recovery twice.
func (s *Store) Consume(ctx context.Context) ([]Intent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin intent transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(
		ctx,
		`SELECT target, channel_login, channel_name, quality, captured_at
         FROM recovery_intents ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query intents: %w", err)
	}

	var set []Intent
	for rows.Next() {
		var intent Intent
		var capturedAt string
		if err := rows.Scan(&intent.Target, &intent.ChannelLogin, &intent.ChannelName, &intent.Quality, &capturedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, capturedAt); parseErr == nil {
			intent.CapturedAt = ts
		}
		set = append(set, intent)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate intents: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close intent rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recovery_intents`); err != nil {
		return nil, fmt.Errorf("clear consumed intents: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit intent consumption: %w", err)
	}
	return set, nil
}
