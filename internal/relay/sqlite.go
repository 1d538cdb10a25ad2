package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transfers (
	file_id   TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	status    TEXT NOT NULL
);
`

// SQLiteStore persists transfers in a SQLite database so announced
// transfers survive a server restart.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("relay: open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("relay: enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("relay: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, t *Transfer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transfers (file_id, file_name, status) VALUES (?, ?, ?)`,
		t.FileID, t.FileName, string(t.Status))
	if err != nil {
		return fmt.Errorf("relay: save transfer %s: %w", t.FileID, err)
	}
	return nil
}

// FindOne implements Store.
func (s *SQLiteStore) FindOne(ctx context.Context, fileID string) (*Transfer, error) {
	var t Transfer
	err := s.db.QueryRowContext(ctx,
		`SELECT file_id, file_name, status FROM transfers WHERE file_id = ?`,
		fileID).Scan(&t.FileID, &t.FileName, &t.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("relay: find transfer %s: %w", fileID, err)
	}
	return &t, nil
}

// UpdateStatus implements Store.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, fileID string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transfers SET status = ? WHERE file_id = ?`, string(status), fileID)
	if err != nil {
		return fmt.Errorf("relay: update transfer %s: %w", fileID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotFound()
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, fileID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transfers WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("relay: delete transfer %s: %w", fileID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotFound()
	}
	return nil
}
