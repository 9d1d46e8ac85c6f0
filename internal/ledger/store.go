// Package ledger records the estimated cost of every generation call.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cost_log (
    id TEXT PRIMARY KEY,
    tool TEXT NOT NULL,
    kind TEXT NOT NULL,
    model TEXT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 1,
    cost REAL NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cost_log_created_at ON cost_log(created_at);
CREATE INDEX IF NOT EXISTS idx_cost_log_kind ON cost_log(kind);
`

// Entry is one billed generation. Quantity is images, video seconds or
// tokens depending on Kind.
type Entry struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Kind      string    `json:"kind"`
	Model     string    `json:"model"`
	Quantity  int       `json:"quantity"`
	CostUSD   float64   `json:"cost_usd"`
	CreatedAt time.Time `json:"created_at"`
}

type Summary struct {
	TotalUSD float64 `json:"total_usd"`
	Quantity int     `json:"quantity"`
	Entries  int     `json:"entries"`
}

type KindSummary struct {
	Kind string `json:"kind"`
	Summary
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".contentgen", "ledger.db"), nil
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps concurrent HTTP sessions from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Log stores e, filling in ID and CreatedAt when they are unset.
func (s *Store) Log(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cost_log (id, tool, kind, model, quantity, cost, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Tool, e.Kind, e.Model, e.Quantity, e.CostUSD, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to log cost: %w", err)
	}
	return nil
}

func (s *Store) Total(ctx context.Context) (*Summary, error) {
	return s.Since(ctx, time.Time{})
}

// Since sums entries created at or after t. A zero t means all time.
func (s *Store) Since(ctx context.Context, t time.Time) (*Summary, error) {
	var from int64
	if !t.IsZero() {
		from = t.UnixMilli()
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(quantity), 0), COUNT(*)
		 FROM cost_log WHERE created_at >= ?`, from)

	var sum Summary
	if err := row.Scan(&sum.TotalUSD, &sum.Quantity, &sum.Entries); err != nil {
		return nil, fmt.Errorf("failed to sum costs: %w", err)
	}
	return &sum, nil
}

func (s *Store) ByKind(ctx context.Context) ([]KindSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COALESCE(SUM(cost), 0), COALESCE(SUM(quantity), 0), COUNT(*)
		 FROM cost_log GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to group costs: %w", err)
	}
	defer rows.Close()

	var out []KindSummary
	for rows.Next() {
		var ks KindSummary
		if err := rows.Scan(&ks.Kind, &ks.TotalUSD, &ks.Quantity, &ks.Entries); err != nil {
			return nil, err
		}
		out = append(out, ks)
	}
	return out, rows.Err()
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, kind, model, quantity, cost, created_at
		 FROM cost_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list costs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.Tool, &e.Kind, &e.Model, &e.Quantity, &e.CostUSD, &ms); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}
