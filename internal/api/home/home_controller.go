package home

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/glasscast/glasscast/internal/api/favorites"
	"github.com/glasscast/glasscast/internal/api/settings"
	"github.com/glasscast/glasscast/internal/api/weather"
	"github.com/glasscast/glasscast/internal/types"
)

// Snapshot is the home screen state a front end renders.
type Snapshot struct {
	Favorites    []types.FavoriteCity
	Selected     *types.FavoriteCity
	Current      *types.CurrentWeather
	Forecast     []types.ForecastDay
	SelectedDay  *types.ForecastDay
	Unit         types.TemperatureUnit
	IsLoading    bool
	ErrorMessage string
}

// Controller owns the home screen: the favorite list, the selected city and
// its weather, the expanded forecast day, and the global temperature unit.
// Network calls run outside the mutex so a slow fetch never blocks reads.
type Controller struct {
	logger    *slog.Logger
	weather   weather.Service
	favorites favorites.Service
	settings  settings.Service

	mu          sync.Mutex
	favs        []types.FavoriteCity
	selected    *types.FavoriteCity
	current     *types.CurrentWeather
	forecast    []types.ForecastDay
	selectedDay *types.ForecastDay
	unit        types.TemperatureUnit
	isLoading   bool
	errMsg      string
}

func NewController(weatherSvc weather.Service, favoritesSvc favorites.Service, prefs settings.Service, logger *slog.Logger) *Controller {
	return &Controller{
		logger:    logger,
		weather:   weatherSvc,
		favorites: favoritesSvc,
		settings:  prefs,
		unit:      prefs.Unit(),
	}
}

// Load fetches the favorite list, selects its first city, and loads that
// city's weather. The selection always re-resolves against the fresh list.
func (c *Controller) Load(ctx context.Context) {
	c.setLoading(true)
	defer c.setLoading(false)

	favs, err := c.favorites.FetchFavorites(ctx)
	if err != nil {
		c.setError(err)
		return
	}

	c.mu.Lock()
	c.favs = favs
	var sel *types.FavoriteCity
	if len(favs) > 0 {
		first := favs[0]
		sel = &first
	}
	if c.selected == nil || sel == nil || c.selected.ID != sel.ID {
		c.selectedDay = nil
	}
	c.selected = sel
	if sel == nil {
		c.current = nil
		c.forecast = nil
	}
	c.mu.Unlock()

	if sel != nil {
		c.fetchWeather(ctx, *sel)
	}
}

// Refresh re-fetches the selected city's weather without reloading favorites.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	sel := c.selected
	c.mu.Unlock()
	if sel == nil {
		return
	}

	c.setLoading(true)
	defer c.setLoading(false)
	c.fetchWeather(ctx, *sel)
}

// SelectCity switches the selected favorite and loads its weather. The
// expanded day collapses since it belongs to the previous city's forecast.
func (c *Controller) SelectCity(ctx context.Context, city types.FavoriteCity) {
	c.mu.Lock()
	c.selected = &city
	c.selectedDay = nil
	c.mu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)
	c.fetchWeather(ctx, city)
}

// SelectDay expands a forecast day, or collapses it when the same day is
// selected again.
func (c *Controller) SelectDay(day types.ForecastDay) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedDay != nil && c.selectedDay.Date.Equal(day.Date) {
		c.selectedDay = nil
		return
	}
	c.selectedDay = &day
}

// RemoveFavorite deletes the favorite. If the removed city was selected the
// first remaining favorite takes its place and its weather loads; removing a
// non-selected city touches nothing else.
func (c *Controller) RemoveFavorite(ctx context.Context, id uuid.UUID) {
	if err := c.favorites.RemoveFavorite(ctx, id); err != nil {
		c.setError(err)
		return
	}

	c.mu.Lock()
	kept := c.favs[:0]
	for _, f := range c.favs {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	c.favs = kept

	removedSelected := c.selected != nil && c.selected.ID == id
	var next *types.FavoriteCity
	if removedSelected {
		c.selectedDay = nil
		if len(kept) > 0 {
			sel := kept[0]
			next = &sel
		}
		c.selected = next
		if next == nil {
			c.current = nil
			c.forecast = nil
		}
	}
	c.mu.Unlock()

	if removedSelected && next != nil {
		c.setLoading(true)
		defer c.setLoading(false)
		c.fetchWeather(ctx, *next)
	}
}

// SetUnit persists the new unit and re-fetches the selected city's weather so
// every displayed temperature is in the new unit. A no-op when unchanged.
func (c *Controller) SetUnit(ctx context.Context, unit types.TemperatureUnit) {
	c.mu.Lock()
	if c.unit == unit {
		c.mu.Unlock()
		return
	}
	c.unit = unit
	sel := c.selected
	c.mu.Unlock()

	if err := c.settings.SetUnit(unit); err != nil {
		c.logger.Warn("Failed to persist temperature unit", slog.Any("error", err))
	}

	if sel != nil {
		c.setLoading(true)
		defer c.setLoading(false)
		c.fetchWeather(ctx, *sel)
	}
}

// fetchWeather loads current conditions and the forecast concurrently and
// applies both, or neither on failure.
func (c *Controller) fetchWeather(ctx context.Context, city types.FavoriteCity) {
	c.mu.Lock()
	unit := c.unit
	c.mu.Unlock()

	var current *types.CurrentWeather
	var forecast []types.ForecastDay

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = c.weather.FetchCurrent(gctx, city.Lat, city.Lon, unit)
		return err
	})
	g.Go(func() error {
		var err error
		forecast, err = c.weather.FetchForecast(gctx, city.Lat, city.Lon, unit)
		return err
	})
	if err := g.Wait(); err != nil {
		c.setError(err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil || c.selected.ID != city.ID {
		// Selection moved on while the fetch was in flight.
		return
	}
	c.current = current
	c.forecast = forecast
	c.errMsg = ""
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoading = v
	if v {
		c.errMsg = ""
	}
}

// setError records a user-visible message. Cancellation is the user changing
// their mind, never an error worth surfacing.
func (c *Controller) setError(err error) {
	if types.IsCancellation(err) {
		return
	}
	c.logger.Warn("Home screen operation failed", slog.Any("error", err))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = err.Error()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Favorites:    append([]types.FavoriteCity(nil), c.favs...),
		Selected:     c.selected,
		Current:      c.current,
		Forecast:     append([]types.ForecastDay(nil), c.forecast...),
		SelectedDay:  c.selectedDay,
		Unit:         c.unit,
		IsLoading:    c.isLoading,
		ErrorMessage: c.errMsg,
	}
}

// Unit returns the active temperature unit.
func (c *Controller) Unit() types.TemperatureUnit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unit
}
