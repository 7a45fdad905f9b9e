// Package catalog keeps a queryable history of graph builds in SQLite.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_path TEXT NOT NULL,
	output_dir TEXT NOT NULL,
	threshold INTEGER NOT NULL,
	hashes INTEGER NOT NULL,
	clusters INTEGER NOT NULL,
	edges INTEGER NOT NULL,
	self_loops INTEGER NOT NULL,
	violations INTEGER NOT NULL,
	dot_path TEXT NOT NULL,
	image_path TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Run is one recorded build.
type Run struct {
	TracePath  string
	OutputDir  string
	Threshold  int
	Hashes     int
	Clusters   int
	Edges      int
	SelfLoops  int
	Violations int
	DotPath    string
	ImagePath  string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Store persists build runs. Writes are synchronous; the tool is a one-shot
// batch converter and there is nothing to overlap with.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one completed build.
func (s *Store) Record(r Run) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(`INSERT INTO runs
		(trace_path, output_dir, threshold, hashes, clusters, edges, self_loops, violations, dot_path, image_path, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TracePath, r.OutputDir, r.Threshold, r.Hashes, r.Clusters, r.Edges,
		r.SelfLoops, r.Violations, r.DotPath, r.ImagePath,
		r.Duration.Milliseconds(), createdAt.Unix())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(n int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT trace_path, output_dir, threshold, hashes, clusters, edges, self_loops, violations, dot_path, image_path, duration_ms, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMs, createdAt int64
		if err := rows.Scan(&r.TracePath, &r.OutputDir, &r.Threshold, &r.Hashes,
			&r.Clusters, &r.Edges, &r.SelfLoops, &r.Violations,
			&r.DotPath, &r.ImagePath, &durationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
