package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasscast/glasscast/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWeather struct {
	mu      sync.Mutex
	queries []string
	results []types.GeocodeCity
	err     error
	// block makes SearchCities wait for context cancellation.
	block bool
}

func (f *fakeWeather) SearchCities(ctx context.Context, query string) ([]types.GeocodeCity, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	block := f.block
	err := f.err
	results := append([]types.GeocodeCity(nil), f.results...)
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (f *fakeWeather) FetchCurrent(ctx context.Context, lat, lon float64, unit types.TemperatureUnit) (*types.CurrentWeather, error) {
	return nil, errors.New("not used")
}

func (f *fakeWeather) FetchForecast(ctx context.Context, lat, lon float64, unit types.TemperatureUnit) ([]types.ForecastDay, error) {
	return nil, errors.New("not used")
}

func (f *fakeWeather) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeWeather) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

type fakeFavorites struct {
	mu    sync.Mutex
	favs  []types.FavoriteCity
	err   error
	added []string
}

func (f *fakeFavorites) FetchFavorites(ctx context.Context) ([]types.FavoriteCity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]types.FavoriteCity(nil), f.favs...), nil
}

func (f *fakeFavorites) AddFavorite(ctx context.Context, cityName string, lat, lon float64) (types.FavoriteCity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.FavoriteCity{}, f.err
	}
	f.added = append(f.added, cityName)
	fc := types.FavoriteCity{ID: uuid.New(), CityName: cityName, Lat: lat, Lon: lon}
	f.favs = append(f.favs, fc)
	return fc, nil
}

func (f *fakeFavorites) RemoveFavorite(ctx context.Context, id uuid.UUID) error {
	return f.err
}

var paris = types.GeocodeCity{Name: "Paris", Country: "FR", Lat: 48.85, Lon: 2.35}

func TestUpdateQueryDebounce(t *testing.T) {
	t.Run("rapid keystrokes produce a single search for the final text", func(t *testing.T) {
		weatherSvc := &fakeWeather{results: []types.GeocodeCity{paris}}
		c := NewController(weatherSvc, &fakeFavorites{}, 40*time.Millisecond, testLogger())

		for _, text := range []string{"P", "Pa", "Par", "Pari"} {
			c.UpdateQuery(text)
			time.Sleep(5 * time.Millisecond)
		}

		require.Eventually(t, func() bool {
			return len(c.Snapshot().Results) == 1
		}, time.Second, 10*time.Millisecond)

		assert.Equal(t, 1, weatherSvc.callCount())
		assert.Equal(t, "Pari", weatherSvc.lastQuery())
	})

	t.Run("whitespace-only text clears immediately with no network call", func(t *testing.T) {
		weatherSvc := &fakeWeather{results: []types.GeocodeCity{paris}}
		c := NewController(weatherSvc, &fakeFavorites{}, 20*time.Millisecond, testLogger())

		c.UpdateQuery("Pari")
		c.UpdateQuery("   ")

		snap := c.Snapshot()
		assert.Empty(t, snap.Results)
		assert.False(t, snap.IsLoading)

		// Even after the debounce window, nothing fired.
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, 0, weatherSvc.callCount())
	})

	t.Run("superseded in-flight search never touches state", func(t *testing.T) {
		weatherSvc := &fakeWeather{block: true}
		c := NewController(weatherSvc, &fakeFavorites{}, time.Millisecond, testLogger())

		c.UpdateQuery("Lond")
		require.Eventually(t, func() bool {
			return weatherSvc.callCount() == 1
		}, time.Second, 5*time.Millisecond)

		// New keystroke cancels the blocked search.
		weatherSvc.mu.Lock()
		weatherSvc.block = false
		weatherSvc.results = []types.GeocodeCity{paris}
		weatherSvc.mu.Unlock()
		c.UpdateQuery("London")

		require.Eventually(t, func() bool {
			return len(c.Snapshot().Results) == 1
		}, time.Second, 5*time.Millisecond)

		snap := c.Snapshot()
		assert.Empty(t, snap.ErrorMessage, "cancellation must not surface as an error")
		assert.Equal(t, "London", weatherSvc.lastQuery())
	})

	t.Run("a search with zero hits still settles", func(t *testing.T) {
		weatherSvc := &fakeWeather{}
		c := NewController(weatherSvc, &fakeFavorites{}, time.Millisecond, testLogger())

		before := c.Snapshot().CompletedSearches
		c.UpdateQuery("Xyzzy")

		require.Eventually(t, func() bool {
			return c.Snapshot().CompletedSearches > before
		}, time.Second, 5*time.Millisecond)

		snap := c.Snapshot()
		assert.Empty(t, snap.Results)
		assert.Empty(t, snap.ErrorMessage)
		assert.False(t, snap.IsLoading)
	})

	t.Run("a transport timeout surfaces an error message", func(t *testing.T) {
		timeout := &url.Error{Op: "Get", URL: "https://api.openweathermap.org", Err: context.DeadlineExceeded}
		weatherSvc := &fakeWeather{err: timeout}
		c := NewController(weatherSvc, &fakeFavorites{}, time.Millisecond, testLogger())

		c.UpdateQuery("Pari")
		require.Eventually(t, func() bool {
			return c.Snapshot().ErrorMessage != ""
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("search failure surfaces an error message", func(t *testing.T) {
		weatherSvc := &fakeWeather{err: &types.RemoteError{Provider: "openweather", Status: 500, Message: "oops"}}
		c := NewController(weatherSvc, &fakeFavorites{}, time.Millisecond, testLogger())

		c.UpdateQuery("Pari")
		require.Eventually(t, func() bool {
			return c.Snapshot().ErrorMessage != ""
		}, time.Second, 5*time.Millisecond)
		assert.Contains(t, c.Snapshot().ErrorMessage, "oops")
	})
}

func TestFavoriteMatching(t *testing.T) {
	existing := types.FavoriteCity{ID: uuid.New(), CityName: "Paris, FR", Lat: 48.85, Lon: 2.35}

	t.Run("favorite match requires exact coordinates", func(t *testing.T) {
		c := NewController(&fakeWeather{}, &fakeFavorites{favs: []types.FavoriteCity{existing}}, time.Millisecond, testLogger())
		c.LoadFavorites(context.Background())

		assert.True(t, c.IsFavorite(paris))

		nearby := paris
		nearby.Lat += 0.0001
		assert.False(t, c.IsFavorite(nearby), "a nearby city is a different city")
	})

	t.Run("adding an existing favorite is a no-op", func(t *testing.T) {
		favs := &fakeFavorites{favs: []types.FavoriteCity{existing}}
		c := NewController(&fakeWeather{}, favs, time.Millisecond, testLogger())
		c.LoadFavorites(context.Background())

		c.AddFavorite(context.Background(), paris)
		assert.Empty(t, favs.added)
	})

	t.Run("adding a new city persists and appends it", func(t *testing.T) {
		favs := &fakeFavorites{}
		c := NewController(&fakeWeather{}, favs, time.Millisecond, testLogger())

		c.AddFavorite(context.Background(), paris)
		require.Equal(t, []string{"Paris, FR"}, favs.added)
		assert.True(t, c.IsFavorite(paris))
	})

	t.Run("add failure surfaces an error message", func(t *testing.T) {
		favs := &fakeFavorites{err: errors.New("row store down")}
		c := NewController(&fakeWeather{}, favs, time.Millisecond, testLogger())

		c.AddFavorite(context.Background(), paris)
		assert.Contains(t, c.Snapshot().ErrorMessage, "row store down")
	})
}
