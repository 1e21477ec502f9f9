package favorites

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/glasscast/glasscast/internal/types"
)

// Credentials supplies the authenticated caller's identity. The session store
// implements it.
type Credentials interface {
	AccessToken() string
	UserID() (uuid.UUID, bool)
}

// Repository is the favorite_cities row store, always scoped to the
// authenticated caller.
type Repository interface {
	List(ctx context.Context) ([]types.FavoriteCity, error)
	Add(ctx context.Context, cityName string, lat, lon float64) (types.FavoriteCity, error)
	// Remove is idempotent: deleting an id that no longer exists is not an
	// error.
	Remove(ctx context.Context, id uuid.UUID) error
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// FetchFavorites returns the caller's favorites ordered by creation time
	// ascending.
	FetchFavorites(ctx context.Context) ([]types.FavoriteCity, error)
	AddFavorite(ctx context.Context, cityName string, lat, lon float64) (types.FavoriteCity, error)
	RemoveFavorite(ctx context.Context, id uuid.UUID) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo}
}

func (s *ServiceImpl) FetchFavorites(ctx context.Context) ([]types.FavoriteCity, error) {
	ctx, span := otel.Tracer("FavoritesService").Start(ctx, "FetchFavorites")
	defer span.End()

	l := s.logger.With(slog.String("method", "FetchFavorites"))
	l.DebugContext(ctx, "Fetching favorite cities")

	favorites, err := s.repo.List(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch favorites", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch favorites")
		return nil, fmt.Errorf("error fetching favorites: %w", err)
	}

	l.DebugContext(ctx, "Favorites fetched", slog.Int("count", len(favorites)))
	span.SetStatus(codes.Ok, "Favorites fetched")
	return favorites, nil
}

func (s *ServiceImpl) AddFavorite(ctx context.Context, cityName string, lat, lon float64) (types.FavoriteCity, error) {
	ctx, span := otel.Tracer("FavoritesService").Start(ctx, "AddFavorite", trace.WithAttributes(
		attribute.String("city.name", cityName),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "AddFavorite"), slog.String("city", cityName))
	l.DebugContext(ctx, "Adding favorite city")

	created, err := s.repo.Add(ctx, cityName, lat, lon)
	if err != nil {
		l.ErrorContext(ctx, "Failed to add favorite", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to add favorite")
		return types.FavoriteCity{}, fmt.Errorf("error adding favorite: %w", err)
	}

	l.InfoContext(ctx, "Favorite city added", slog.String("favoriteID", created.ID.String()))
	span.SetStatus(codes.Ok, "Favorite added")
	return created, nil
}

func (s *ServiceImpl) RemoveFavorite(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("FavoritesService").Start(ctx, "RemoveFavorite", trace.WithAttributes(
		attribute.String("favorite.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RemoveFavorite"), slog.String("favoriteID", id.String()))
	l.DebugContext(ctx, "Removing favorite city")

	if err := s.repo.Remove(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to remove favorite", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to remove favorite")
		return fmt.Errorf("error removing favorite: %w", err)
	}

	l.InfoContext(ctx, "Favorite city removed")
	span.SetStatus(codes.Ok, "Favorite removed")
	return nil
}
