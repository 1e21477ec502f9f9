package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glasscast/glasscast/internal/api/favorites"
	"github.com/glasscast/glasscast/internal/api/weather"
	"github.com/glasscast/glasscast/internal/types"
)

const defaultDebounce = 400 * time.Millisecond

// Snapshot is the controller state a front end renders.
type Snapshot struct {
	Query        string
	Results      []types.GeocodeCity
	Favorites    []types.FavoriteCity
	IsLoading    bool
	ErrorMessage string

	// CompletedSearches counts searches that settled (applied results or an
	// error). A zero-hit search still settles; waiters compare against a
	// previous snapshot instead of probing Results.
	CompletedSearches uint64
}

// Controller runs the search-as-you-type flow: every keystroke cancels the
// previous debounce/search task, empty input clears results immediately with
// no network call, and only the newest search may touch state.
type Controller struct {
	logger    *slog.Logger
	weather   weather.Service
	favorites favorites.Service
	debounce  time.Duration

	mu        sync.Mutex
	query     string
	results   []types.GeocodeCity
	favs      []types.FavoriteCity
	isLoading bool
	errMsg    string
	gen       uint64
	completed uint64
	cancel    context.CancelFunc
}

func NewController(weatherSvc weather.Service, favoritesSvc favorites.Service, debounce time.Duration, logger *slog.Logger) *Controller {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Controller{
		logger:    logger,
		weather:   weatherSvc,
		favorites: favoritesSvc,
		debounce:  debounce,
	}
}

// LoadFavorites refreshes the favorite list used for the favorite badge.
func (c *Controller) LoadFavorites(ctx context.Context) {
	favs, err := c.favorites.FetchFavorites(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !types.IsCancellation(err) {
			c.errMsg = err.Error()
		}
		return
	}
	c.favs = favs
}

// UpdateQuery is called on every text change.
func (c *Controller) UpdateQuery(text string) {
	c.mu.Lock()
	c.query = text
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++

	if strings.TrimSpace(text) == "" {
		c.results = nil
		c.isLoading = false
		c.mu.Unlock()
		return
	}

	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go c.debounceThenSearch(ctx, gen, text)
}

func (c *Controller) debounceThenSearch(ctx context.Context, gen uint64, query string) {
	timer := time.NewTimer(c.debounce)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	c.search(ctx, gen, query)
}

func (c *Controller) search(ctx context.Context, gen uint64, query string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.isLoading = true
	c.errMsg = ""
	c.mu.Unlock()

	results, err := c.weather.SearchCities(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// A newer keystroke superseded this search while it was in flight.
		return
	}
	c.isLoading = false
	c.completed++
	if err != nil {
		if !types.IsCancellation(err) {
			c.logger.Warn("City search failed", slog.String("query", query), slog.Any("error", err))
			c.errMsg = err.Error()
		}
		return
	}
	c.results = results
}

// IsFavorite matches on exact latitude/longitude equality, no tolerance.
func (c *Controller) IsFavorite(city types.GeocodeCity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isFavoriteLocked(city)
}

func (c *Controller) isFavoriteLocked(city types.GeocodeCity) bool {
	for _, f := range c.favs {
		if f.Lat == city.Lat && f.Lon == city.Lon {
			return true
		}
	}
	return false
}

// AddFavorite persists the city and appends it to the local list. Adding an
// existing favorite is a no-op.
func (c *Controller) AddFavorite(ctx context.Context, city types.GeocodeCity) {
	c.mu.Lock()
	if c.isFavoriteLocked(city) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	added, err := c.favorites.AddFavorite(ctx, city.DisplayName(), city.Lat, city.Lon)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !types.IsCancellation(err) {
			c.errMsg = err.Error()
		}
		return
	}
	c.favs = append(c.favs, added)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Query:             c.query,
		Results:           append([]types.GeocodeCity(nil), c.results...),
		Favorites:         append([]types.FavoriteCity(nil), c.favs...),
		IsLoading:         c.isLoading,
		ErrorMessage:      c.errMsg,
		CompletedSearches: c.completed,
	}
}
