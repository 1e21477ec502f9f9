package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasscast/glasscast/internal/types"
)

func newPgRepo(t *testing.T, userID uuid.UUID) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock, staticCreds{userID: userID}, testLogger()), mock
}

func TestPostgresList(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the caller's rows", func(t *testing.T) {
		repo, mock := newPgRepo(t, userID)
		rowID := uuid.New()
		created := time.Now().UTC()
		mock.ExpectQuery("FROM favorite_cities").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "city_name", "lat", "lon", "created_at"}).
				AddRow(rowID, userID, "Paris, FR", 48.85, 2.35, created))

		rows, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, rowID, rows[0].ID)
		assert.Equal(t, "Paris, FR", rows[0].CityName)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("signed-out callers are rejected before touching the pool", func(t *testing.T) {
		repo, mock := newPgRepo(t, uuid.Nil)

		_, err := repo.List(context.Background())
		require.Error(t, err)
		re, ok := types.AsRemote(err)
		require.True(t, ok)
		assert.Equal(t, "postgres", re.Provider)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresAdd(t *testing.T) {
	userID := uuid.New()

	t.Run("inserts and returns the created row", func(t *testing.T) {
		repo, mock := newPgRepo(t, userID)
		rowID := uuid.New()
		created := time.Now().UTC()
		mock.ExpectQuery("INSERT INTO favorite_cities").
			WithArgs(userID, "Paris, FR", 48.85, 2.35).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "city_name", "lat", "lon", "created_at"}).
				AddRow(rowID, userID, "Paris, FR", 48.85, 2.35, created))

		fc, err := repo.Add(context.Background(), "Paris, FR", 48.85, 2.35)
		require.NoError(t, err)
		assert.Equal(t, rowID, fc.ID)
		assert.Equal(t, userID, fc.UserID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("an insert that echoes nothing yields a placeholder", func(t *testing.T) {
		repo, mock := newPgRepo(t, userID)
		mock.ExpectQuery("INSERT INTO favorite_cities").
			WithArgs(userID, "Paris, FR", 48.85, 2.35).
			WillReturnError(pgx.ErrNoRows)

		fc, err := repo.Add(context.Background(), "Paris, FR", 48.85, 2.35)
		require.NoError(t, err)
		assert.Equal(t, "-", fc.CityName)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRemove(t *testing.T) {
	userID := uuid.New()

	t.Run("deletes the caller's row", func(t *testing.T) {
		repo, mock := newPgRepo(t, userID)
		id := uuid.New()
		mock.ExpectQuery("DELETE FROM favorite_cities").
			WithArgs(id, userID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

		require.NoError(t, repo.Remove(context.Background(), id))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleting a missing row is a no-op", func(t *testing.T) {
		repo, mock := newPgRepo(t, userID)
		id := uuid.New()
		mock.ExpectQuery("DELETE FROM favorite_cities").
			WithArgs(id, userID).
			WillReturnError(pgx.ErrNoRows)

		require.NoError(t, repo.Remove(context.Background(), id))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
