package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/glasscast/glasscast/app/observability/metrics"
	"github.com/glasscast/glasscast/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository talks straight to a self-hosted Postgres instead of the
// hosted PostgREST endpoint. Scoping happens through an explicit user_id
// column since there is no RLS-bearing gateway in between.
type PostgresRepository struct {
	logger *slog.Logger
	pool   Pool
	creds  Credentials
}

// Pool is the subset of pgxpool.Pool the repository uses; pgxmock satisfies
// it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewPostgresRepository(pool Pool, creds Credentials, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, pool: pool, creds: creds}
}

func (r *PostgresRepository) List(ctx context.Context) ([]types.FavoriteCity, error) {
	userID, ok := r.creds.UserID()
	if !ok {
		return nil, &types.RemoteError{Provider: "postgres", Message: "authentication required"}
	}

	query := `
		SELECT id, user_id, city_name, lat, lon, created_at
		FROM favorite_cities
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.timedQuery(ctx, "list", func() (pgx.Rows, error) {
		return r.pool.Query(ctx, query, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("database error fetching favorites: %w", err)
	}
	defer rows.Close()

	var favorites []types.FavoriteCity
	for rows.Next() {
		var fc types.FavoriteCity
		if err := rows.Scan(&fc.ID, &fc.UserID, &fc.CityName, &fc.Lat, &fc.Lon, &fc.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning favorite: %w", err)
		}
		favorites = append(favorites, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating favorites: %w", err)
	}
	return favorites, nil
}

func (r *PostgresRepository) Add(ctx context.Context, cityName string, lat, lon float64) (types.FavoriteCity, error) {
	userID, ok := r.creds.UserID()
	if !ok {
		return types.FavoriteCity{}, &types.RemoteError{Provider: "postgres", Message: "authentication required"}
	}

	query := `
		INSERT INTO favorite_cities (user_id, city_name, lat, lon)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, city_name, lat, lon, created_at
	`

	var fc types.FavoriteCity
	start := time.Now()
	err := r.pool.QueryRow(ctx, query, userID, cityName, lat, lon).Scan(
		&fc.ID, &fc.UserID, &fc.CityName, &fc.Lat, &fc.Lon, &fc.CreatedAt,
	)
	r.record(ctx, "add", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Mirrors the hosted path: an insert that echoes nothing back gets
			// a placeholder instead of an error.
			r.logger.Warn("Insert returned no rows, substituting placeholder", slog.String("city", cityName))
			return types.PlaceholderFavorite(), nil
		}
		return types.FavoriteCity{}, fmt.Errorf("database error adding favorite: %w", err)
	}
	return fc, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, id uuid.UUID) error {
	userID, ok := r.creds.UserID()
	if !ok {
		return &types.RemoteError{Provider: "postgres", Message: "authentication required"}
	}

	query := `
		DELETE FROM favorite_cities
		WHERE id = $1 AND user_id = $2
		RETURNING id
	`

	var deleted uuid.UUID
	start := time.Now()
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&deleted)
	r.record(ctx, "remove", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Removing an id that is already gone is a no-op.
			return nil
		}
		return fmt.Errorf("database error removing favorite: %w", err)
	}
	return nil
}

func (r *PostgresRepository) timedQuery(ctx context.Context, op string, fn func() (pgx.Rows, error)) (pgx.Rows, error) {
	start := time.Now()
	rows, err := fn()
	r.record(ctx, op, start, err)
	return rows, err
}

func (r *PostgresRepository) record(ctx context.Context, op string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("db.operation", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
