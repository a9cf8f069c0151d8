// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typerace/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout keeps fractional seconds fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for results and replay records.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers from the submit goroutine and
	// the event loop.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			mode TEXT NOT NULL,
			wpm REAL NOT NULL,
			raw_wpm REAL NOT NULL,
			accuracy REAL NOT NULL,
			consistency REAL NOT NULL,
			words_typed INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			missed INTEGER NOT NULL,
			extra INTEGER NOT NULL,
			is_win INTEGER,
			completed_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS replay_records (
			mode TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_completed_at ON results(completed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_results_mode ON results(mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SubmitResult stores a completed run. An empty ID is replaced with a new
// UUID and a zero CompletedAt with the current time.
func (s *Store) SubmitResult(ctx context.Context, r model.Result) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
	var isWin any
	if r.IsWin != nil {
		if *r.IsWin {
			isWin = 1
		} else {
			isWin = 0
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, player, mode, wpm, raw_wpm, accuracy, consistency, words_typed, duration_ms, correct, incorrect, missed, extra, is_win, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.Player,
		string(r.Mode),
		r.WPM,
		r.RawWPM,
		r.Accuracy,
		r.Consistency,
		r.WordsTyped,
		r.DurationMs,
		r.Correct,
		r.Incorrect,
		r.Missed,
		r.Extra,
		isWin,
		r.CompletedAt.UTC().Format(timeLayout),
	)
	return err
}

// ListResults returns stored results filtered by stats config, oldest first.
func (s *Store) ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.Result, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(cfg.Mode))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, player, mode, wpm, raw_wpm, accuracy, consistency, words_typed, duration_ms,
		correct, incorrect, missed, extra, is_win, completed_at
		FROM results
		WHERE %s
		ORDER BY completed_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.Result
	for rows.Next() {
		var r model.Result
		var mode, completedAt string
		var isWin sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Player, &mode, &r.WPM, &r.RawWPM, &r.Accuracy, &r.Consistency,
			&r.WordsTyped, &r.DurationMs, &r.Correct, &r.Incorrect, &r.Missed, &r.Extra, &isWin, &completedAt); err != nil {
			return nil, err
		}
		r.Mode = model.Mode(mode)
		if isWin.Valid {
			win := isWin.Int64 != 0
			r.IsWin = &win
		}
		parsed, err := time.Parse(time.RFC3339Nano, completedAt)
		if err != nil {
			return nil, err
		}
		r.CompletedAt = parsed
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// SaveRecord replaces the replay record for rec.Mode.
func (s *Store) SaveRecord(ctx context.Context, rec model.RunRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO replay_records (mode, payload, completed_at) VALUES (?, ?, ?)
		 ON CONFLICT(mode) DO UPDATE SET payload = excluded.payload, completed_at = excluded.completed_at`,
		string(rec.Mode),
		string(payload),
		rec.CompletedAt.UTC().Format(timeLayout),
	)
	return err
}

// LoadRecord returns the replay record for mode. ok is false when none is
// stored.
func (s *Store) LoadRecord(ctx context.Context, mode model.Mode) (model.RunRecord, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM replay_records WHERE mode = ?`, string(mode)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, false, nil
	}
	if err != nil {
		return model.RunRecord{}, false, err
	}
	var rec model.RunRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return model.RunRecord{}, false, fmt.Errorf("failed to decode replay record: %w", err)
	}
	return rec, true, nil
}
