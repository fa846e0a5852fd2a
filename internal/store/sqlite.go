package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/parley-chat/parley/internal/models"
)

// SQLiteStore implements the user registry on SQLite, for local
// development without a PostgreSQL instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/parley.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/parley.db"
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		uid INTEGER PRIMARY KEY AUTOINCREMENT,
		handle TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_handle ON users(handle);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	handle := uuid.New().String()
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (handle, name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, handle, name, email, now, now)
	if err != nil {
		return nil, err
	}

	uid, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByUID(ctx, uid)
}

// scanUser scans one user row; the handle column is stored as text.
func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var handle string
	err := row.Scan(
		&user.UID,
		&handle,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.Handle, err = uuid.Parse(handle)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUID retrieves a user by numeric uid, nil if absent.
func (s *SQLiteStore) GetUserByUID(ctx context.Context, uid int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT uid, handle, name, email, created_at, updated_at
		FROM users WHERE uid = ?
	`, uid))
}

// GetUserByHandle retrieves a user by external handle, nil if absent.
func (s *SQLiteStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT uid, handle, name, email, created_at, updated_at
		FROM users WHERE handle = ?
	`, handle))
}

// CountUsers returns the total number of registered users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
