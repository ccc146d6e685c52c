package challenge

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	exp := time.Date(2030, 1, 1, 0, 5, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO challenges (nonce, expires_at) VALUES ($1, $2)`)).
		WithArgs("n", exp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), Challenge{Nonce: "n", ExpiresAt: exp}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetAndTake(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	exp := time.Date(2030, 1, 1, 0, 5, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT nonce, expires_at FROM challenges WHERE nonce = $1`)).
		WithArgs("n").
		WillReturnRows(pgxmock.NewRows([]string{"nonce", "expires_at"}).AddRow("n", exp))
	got, err := repo.Get(ctx, "n")
	require.NoError(t, err)
	require.Equal(t, "n", got.Nonce)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM challenges WHERE nonce = $1 RETURNING nonce, expires_at`)).
		WithArgs("n").
		WillReturnRows(pgxmock.NewRows([]string{"nonce", "expires_at"}).AddRow("n", exp))
	taken, err := repo.Take(ctx, "n")
	require.NoError(t, err)
	require.True(t, taken.ExpiresAt.Equal(exp))

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM challenges WHERE nonce = $1 RETURNING nonce, expires_at`)).
		WithArgs("n").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.Take(ctx, "n")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteExpired(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM challenges WHERE expires_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
