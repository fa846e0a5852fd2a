package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// migrationSQL is the full schema; every statement is idempotent so the
// migration can run on every startup.
const migrationSQL = `
CREATE TABLE IF NOT EXISTS users (
	uid BIGSERIAL PRIMARY KEY,
	handle UUID UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_handle ON users(handle);
`

// RunMigrations applies the schema to the PostgreSQL database.
func RunMigrations(databaseURL string) error {
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, migrationSQL)
	return err
}
