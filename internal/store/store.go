// Package store archives finished annotation runs in a local SQLite
// database so they can be inspected later with `git-chronicle show`.
// Conversation state is never stored here, only the run's outputs.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/exedev/chronicle/internal/schema"
)

// Run is one archived annotation run.
type Run struct {
	ID           string                       `json:"id"`
	CommitSHA    string                       `json:"commit_sha"`
	Provider     string                       `json:"provider"`
	Model        string                       `json:"model"`
	Summary      string                       `json:"summary"`
	Regions      []schema.RegionAnnotation    `json:"regions"`
	CrossCutting []schema.CrossCuttingConcern `json:"cross_cutting"`
	CreatedAt    string                       `json:"created_at"`
}

// Store is the SQLite-backed run archive.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens (or creates) the archive under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dbPath := filepath.Join(dir, "chronicle.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(2)

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		commit_sha    TEXT NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		summary       TEXT NOT NULL,
		regions       TEXT NOT NULL,
		cross_cutting TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_commit ON runs(commit_sha);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun archives a run, assigning an id and timestamp when absent.
func (s *Store) SaveRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	regions, err := json.Marshal(run.Regions)
	if err != nil {
		return fmt.Errorf("marshal regions: %w", err)
	}
	crossCutting, err := json.Marshal(run.CrossCutting)
	if err != nil {
		return fmt.Errorf("marshal cross-cutting: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (id, commit_sha, provider, model, summary, regions, cross_cutting, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CommitSHA, run.Provider, run.Model, run.Summary, string(regions), string(crossCutting), run.CreatedAt,
	)
	return err
}

// LatestRun returns the most recent run for a commit, or nil when none
// exists.
func (s *Store) LatestRun(commitSHA string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, commit_sha, provider, model, summary, regions, cross_cutting, created_at
		 FROM runs WHERE commit_sha = ? ORDER BY created_at DESC LIMIT 1`, commitSHA)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListRuns returns recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, commit_sha, provider, model, summary, regions, cross_cutting, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var regions, crossCutting string
	if err := row.Scan(&run.ID, &run.CommitSHA, &run.Provider, &run.Model,
		&run.Summary, &regions, &crossCutting, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(regions), &run.Regions); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	if err := json.Unmarshal([]byte(crossCutting), &run.CrossCutting); err != nil {
		return nil, fmt.Errorf("decode cross-cutting: %w", err)
	}
	return &run, nil
}
