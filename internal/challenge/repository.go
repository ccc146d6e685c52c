package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/walletchat/walletchat/internal/infra"
)

// Repository persists challenges.
type Repository interface {
	Create(ctx context.Context, c Challenge) error
	Get(ctx context.Context, nonce string) (Challenge, error)
	// Take returns the challenge and removes it in one atomic step.
	Take(ctx context.Context, nonce string) (Challenge, error)
}

// Purger is implemented by backends that need explicit expiry sweeps.
type Purger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// PostgresRepository stores challenges in PostgreSQL.
type PostgresRepository struct {
	db infra.PgxPool
}

// NewPostgresRepository builds a Postgres-backed challenge repository.
func NewPostgresRepository(db infra.PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a challenge.
func (r *PostgresRepository) Create(ctx context.Context, c Challenge) error {
	_, err := r.db.Exec(ctx, `INSERT INTO challenges (nonce, expires_at) VALUES ($1, $2)`, c.Nonce, c.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

// Get fetches a challenge by nonce.
func (r *PostgresRepository) Get(ctx context.Context, nonce string) (Challenge, error) {
	row := r.db.QueryRow(ctx, `SELECT nonce, expires_at FROM challenges WHERE nonce = $1`, nonce)
	return scanChallenge(row)
}

// Take deletes the challenge and returns the deleted row.
func (r *PostgresRepository) Take(ctx context.Context, nonce string) (Challenge, error) {
	row := r.db.QueryRow(ctx, `DELETE FROM challenges WHERE nonce = $1 RETURNING nonce, expires_at`, nonce)
	return scanChallenge(row)
}

// DeleteExpired removes challenges that expired before the cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM challenges WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanChallenge(row pgx.Row) (Challenge, error) {
	var c Challenge
	if err := row.Scan(&c.Nonce, &c.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Challenge{}, ErrNotFound
		}
		return Challenge{}, err
	}
	c.ExpiresAt = c.ExpiresAt.UTC()
	return c, nil
}
