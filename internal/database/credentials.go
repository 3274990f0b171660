package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

// CredentialStore exposes the credentials table as a client session store,
// for command-line sessions kept alongside a local database.
func (s *SQLiteStore) CredentialStore() credentials.Store {
	return &credentialTable{db: s.db}
}

type credentialTable struct {
	db *sql.DB
}

func (c *credentialTable) Get(
	ctx context.Context,
	key string,
) (
	string,
	bool,
	error,
) {
	row := c.db.QueryRowContext(ctx, `
		SELECT value
		FROM credentials
		WHERE key=?1;`,
		key,
	)

	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("couldn't scan credential: %v", err)
	}
	return value, true, nil
}

func (c *credentialTable) Set(
	ctx context.Context,
	key string,
	value string,
) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value)
		VALUES (?1, ?2)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value;`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into credentials: %v", err)
	}
	return nil
}

func (c *credentialTable) Remove(
	ctx context.Context,
	key string,
) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM credentials
		WHERE key=?1;`,
		key,
	)
	if err != nil {
		return fmt.Errorf("couldn't delete from credentials: %v", err)
	}
	return nil
}
