package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore remembers which jobs were already scored and caches company
// ratings between runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// its tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	tables := []struct{ name, ddl string }{
		{"seen_jobs", `CREATE TABLE IF NOT EXISTS seen_jobs (
			job_key    TEXT PRIMARY KEY,
			first_seen DATETIME DEFAULT CURRENT_TIMESTAMP
		)`},
		{"company_ratings", `CREATE TABLE IF NOT EXISTS company_ratings (
			company    TEXT PRIMARY KEY,
			rating     REAL NOT NULL,
			fetched_at DATETIME NOT NULL
		)`},
	}
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating %s table: %w", t.name, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// HasSeen returns true if the job key has already been recorded.
func (s *SQLiteStore) HasSeen(key string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM seen_jobs WHERE job_key = ?", key).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", key, err)
	}
	return true, nil
}

// MarkSeen records a job key as seen. If it already exists the call is a no-op.
func (s *SQLiteStore) MarkSeen(key string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO seen_jobs (job_key) VALUES (?)", key)
	if err != nil {
		return fmt.Errorf("marking job %s as seen: %w", key, err)
	}
	return nil
}

// Rating returns the cached rating for company and when it was fetched.
// ok is false when nothing is cached.
func (s *SQLiteStore) Rating(company string) (rating float64, fetchedAt time.Time, ok bool, err error) {
	err = s.db.QueryRow(
		"SELECT rating, fetched_at FROM company_ratings WHERE company = ?",
		ratingKey(company),
	).Scan(&rating, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("reading rating for %s: %w", company, err)
	}
	return rating, fetchedAt, true, nil
}

// PutRating stores or replaces the rating for company.
func (s *SQLiteStore) PutRating(company string, rating float64) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO company_ratings (company, rating, fetched_at) VALUES (?, ?, ?)",
		ratingKey(company), rating, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing rating for %s: %w", company, err)
	}
	return nil
}

// Cleanup deletes seen jobs and cached ratings older than the given duration.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan)
	if _, err := s.db.Exec("DELETE FROM seen_jobs WHERE first_seen < ?", cutoff); err != nil {
		return fmt.Errorf("cleaning up seen jobs older than %v: %w", olderThan, err)
	}
	if _, err := s.db.Exec("DELETE FROM company_ratings WHERE fetched_at < ?", cutoff); err != nil {
		return fmt.Errorf("cleaning up ratings older than %v: %w", olderThan, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func ratingKey(company string) string {
	return strings.ToLower(strings.TrimSpace(company))
}
