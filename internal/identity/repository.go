package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/walletchat/walletchat/internal/infra"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByWallet(ctx context.Context, wallet string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db infra.PgxPool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db infra.PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user. The unique index on wallet decides concurrent
// first logins; the loser gets ErrUserExists.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, wallet, created_at) VALUES ($1, $2, $3)`,
		userID, user.Wallet, user.CreatedAt.UTC())
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByWallet fetches a user by wallet address.
func (r *PostgresRepository) FindByWallet(ctx context.Context, wallet string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, wallet, created_at FROM users WHERE wallet = $1`, wallet)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, wallet, created_at FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Wallet, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
