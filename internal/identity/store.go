// Package identity persists the chat-identity to GitHub-login link table.
// This is the only workflow state that survives a restart.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotLinked indicates the chat identity has no GitHub login on record.
var ErrNotLinked = errors.New("identity not linked")

// Store is a sqlite-backed link table. Writes are serialized by the driver;
// readers always observe whole rows.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the link table at the given sqlite DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS identity_links (
			chat_id      TEXT PRIMARY KEY,
			github_login TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create identity_links table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Link records that a chat identity belongs to a GitHub login, replacing
// any previous link for the same identity.
func (s *Store) Link(ctx context.Context, chatID, login string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_links(chat_id, github_login, created_at)
		VALUES(?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			github_login = excluded.github_login,
			created_at   = excluded.created_at
	`, chatID, login, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("link identity: %w", err)
	}
	return nil
}

// Unlink removes the link for a chat identity and returns the login that
// was removed. Returns ErrNotLinked when there was none.
func (s *Store) Unlink(ctx context.Context, chatID string) (string, error) {
	var login string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM identity_links WHERE chat_id = ? RETURNING github_login`, chatID,
	).Scan(&login)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotLinked
	}
	if err != nil {
		return "", fmt.Errorf("unlink identity: %w", err)
	}
	return login, nil
}

// Lookup returns the GitHub login linked to a chat identity, if any.
func (s *Store) Lookup(ctx context.Context, chatID string) (string, bool, error) {
	var login string
	err := s.db.QueryRowContext(ctx,
		`SELECT github_login FROM identity_links WHERE chat_id = ?`, chatID,
	).Scan(&login)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup identity: %w", err)
	}
	return login, true, nil
}
