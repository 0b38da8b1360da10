package sqlite

import (
	"context"
	"database/sql"
	"errors"
)

type ConfigStore struct {
	db *sql.DB
}

func NewConfigStore(db *sql.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

func (s *ConfigStore) Get(ctx context.Context, key, def string) (string, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
SELECT value FROM payflow_config WHERE name=?;
`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return def, nil
		}
		return "", err
	}
	return value, nil
}

func (s *ConfigStore) Set(ctx context.Context, key, value string) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `
INSERT INTO payflow_config(name, value) VALUES(?,?)
ON CONFLICT(name) DO UPDATE SET value=excluded.value;
`, key, value)
	return err
}
