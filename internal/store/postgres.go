package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// PostgresStore implements the user registry on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// observePg records query latency for the PostgreSQL histogram.
func observePg(start time.Time) {
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
}

// CreateUser creates a new user record. The UID comes from the table's
// sequence, so uids are monotonic like every other identifier here.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	defer observePg(time.Now())
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (handle, name, email)
		VALUES ($1, $2, $3)
		RETURNING uid, handle, name, email, created_at, updated_at
	`, uuid.New(), name, email).Scan(
		&user.UID,
		&user.Handle,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUID retrieves a user by numeric uid, nil if absent.
func (s *PostgresStore) GetUserByUID(ctx context.Context, uid int64) (*models.User, error) {
	defer observePg(time.Now())
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT uid, handle, name, email, created_at, updated_at
		FROM users WHERE uid = $1
	`, uid).Scan(
		&user.UID,
		&user.Handle,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByHandle retrieves a user by external handle, nil if absent.
func (s *PostgresStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	parsed, err := uuid.Parse(handle)
	if err != nil {
		return nil, nil
	}

	defer observePg(time.Now())
	user := &models.User{}
	err = s.pool.QueryRow(ctx, `
		SELECT uid, handle, name, email, created_at, updated_at
		FROM users WHERE handle = $1
	`, parsed).Scan(
		&user.UID,
		&user.Handle,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CountUsers returns the total number of registered users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	defer observePg(time.Now())
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
