package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/peervote/internal/models"
)

// sqliteKVRepo implements KVRepository using SQLite.
type sqliteKVRepo struct {
	db *sql.DB
}

// Get retrieves an entry by key.
func (r *sqliteKVRepo) Get(ctx context.Context, key string) (*models.Entry, error) {
	var e models.Entry
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM kv WHERE key = ?`, key,
	).Scan(&e.Key, &e.Value, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return &e, nil
}

// Set inserts or replaces an entry.
func (r *sqliteKVRepo) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes an entry.
func (r *sqliteKVRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns all entries ordered by key.
func (r *sqliteKVRepo) List(ctx context.Context) ([]*models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
