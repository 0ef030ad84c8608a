package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLite stores documents in the documents table, keyed by path. The
// content hash is the version token.
type SQLite struct {
	db   *sql.DB
	path string
}

func NewSQLite(db *sql.DB, path string) *SQLite {
	return &SQLite{db: db, path: path}
}

func (s *SQLite) Read(ctx context.Context) (Revision, error) {
	var rev Revision
	err := s.db.QueryRowContext(ctx,
		`SELECT content, version FROM documents WHERE path = ?`, s.path,
	).Scan(&rev.Content, &rev.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, ErrNotFound
	}
	if err != nil {
		return Revision{}, fmt.Errorf("get document: %w", err)
	}
	return rev, nil
}

func (s *SQLite) Write(ctx context.Context, content []byte, expectedVersion string) (string, error) {
	version := Version(content)
	now := time.Now().UTC()

	var result sql.Result
	var err error
	if expectedVersion == "" {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO documents (path, content, version, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(path) DO NOTHING`,
			s.path, content, version, now,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE documents SET content = ?, version = ?, updated_at = ? WHERE path = ? AND version = ?`,
			content, version, now, s.path, expectedVersion,
		)
	}
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return "", ErrStale
	}
	return version, nil
}
