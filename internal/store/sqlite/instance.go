package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"strings"

	"github.com/guidepostapp/guidepost-server/internal/domain"
	"github.com/guidepostapp/guidepost-server/internal/store"
)

// The instance table is a key-value store; the server identity lives under a
// single key as a JSON document.
const instanceKey = "instance"

// CreateInstance stores the server identity record.
// Returns store.ErrAlreadyExists if an instance record already exists.
func (s *Store) CreateInstance(ctx context.Context, instance *domain.Instance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO instance (key, value) VALUES (?, ?)`, instanceKey, string(data))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetInstance retrieves the server identity record.
// Returns store.ErrNotFound if the server has not been initialized yet.
func (s *Store) GetInstance(ctx context.Context) (*domain.Instance, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM instance WHERE key = ?`, instanceKey).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var instance domain.Instance
	if err := json.Unmarshal([]byte(value), &instance); err != nil {
		return nil, err
	}
	return &instance, nil
}

// UpdateInstance replaces the server identity record, creating it if needed.
func (s *Store) UpdateInstance(ctx context.Context, instance *domain.Instance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO instance (key, value) VALUES (?, ?)`, instanceKey, string(data))
	return err
}
