package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/glasscast/glasscast/app/observability/metrics"
	"github.com/glasscast/glasscast/internal/types"
)

const (
	defaultBaseURL = "https://api.openweathermap.org"

	geocodePath  = "/geo/1.0/direct"
	currentPath  = "/data/2.5/weather"
	forecastPath = "/data/2.5/forecast"
	uvIndexPath  = "/data/2.5/uvi"

	geocodeLimit = 10
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// SearchCities resolves free text to candidate cities, up to 10 results.
	SearchCities(ctx context.Context, query string) ([]types.GeocodeCity, error)

	// FetchCurrent loads current conditions. The UV index sub-request runs
	// concurrently and its failure is swallowed; UV is best-effort enrichment.
	FetchCurrent(ctx context.Context, lat, lon float64, unit types.TemperatureUnit) (*types.CurrentWeather, error)

	// FetchForecast loads the 3-hourly forecast and aggregates it into at most
	// five upcoming local calendar days, excluding the current one.
	FetchForecast(ctx context.Context, lat, lon float64, unit types.TemperatureUnit) ([]types.ForecastDay, error)
}

// ClientConfig bundles the provider credentials and HTTP tuning knobs.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Client  *http.Client

	// Free-tier OpenWeather allows 60 calls/min; stay politely under it.
	RequestsPerSecond float64
	Burst             int
}

type ServiceImpl struct {
	logger  *slog.Logger
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter

	// Search-as-you-type re-issues identical queries constantly (backspace,
	// retype); memoize geocode results briefly.
	geocodeCache *gocache.Cache

	now func() time.Time
}

func NewService(cfg ClientConfig, logger *slog.Logger) *ServiceImpl {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.8
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &ServiceImpl{
		logger:       logger,
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		client:       cfg.Client,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		geocodeCache: gocache.New(time.Minute, 5*time.Minute),
		now:          time.Now,
	}
}

func (s *ServiceImpl) SearchCities(ctx context.Context, query string) ([]types.GeocodeCity, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "SearchCities", trace.WithAttributes(
		attribute.String("geocode.query", query),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SearchCities"), slog.String("query", query))

	cacheKey := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := s.geocodeCache.Get(cacheKey); ok {
		l.DebugContext(ctx, "Geocode cache hit")
		span.SetStatus(codes.Ok, "Geocode cache hit")
		return cached.([]types.GeocodeCity), nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(geocodeLimit))
	params.Set("appid", s.apiKey)

	var results []types.GeocodeCity
	if err := s.getJSON(ctx, geocodePath, params, &results); err != nil {
		l.ErrorContext(ctx, "Geocoding request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocoding request failed")
		return nil, fmt.Errorf("searching cities: %w", err)
	}

	s.geocodeCache.Set(cacheKey, results, gocache.DefaultExpiration)
	l.DebugContext(ctx, "Geocoding completed", slog.Int("count", len(results)))
	span.SetStatus(codes.Ok, "Geocoding completed")
	return results, nil
}

func (s *ServiceImpl) FetchCurrent(ctx context.Context, lat, lon float64, unit types.TemperatureUnit) (*types.CurrentWeather, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "FetchCurrent", trace.WithAttributes(
		attribute.Float64("location.lat", lat),
		attribute.Float64("location.lon", lon),
		attribute.String("weather.unit", unit.APIValue()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "FetchCurrent"))

	params := coordParams(lat, lon, s.apiKey)
	params.Set("units", unit.APIValue())

	var current currentResponse
	var uv *float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.getJSON(gctx, currentPath, params, &current)
	})
	g.Go(func() error {
		// UV failure becomes an absent value, never a propagated error.
		var resp uvResponse
		if err := s.getJSON(gctx, uvIndexPath, coordParams(lat, lon, s.apiKey), &resp); err != nil {
			l.DebugContext(gctx, "UV index unavailable", slog.Any("error", err))
			return nil
		}
		uv = resp.Value
		return nil
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Current conditions request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Current conditions request failed")
		return nil, fmt.Errorf("fetching current weather: %w", err)
	}

	span.SetStatus(codes.Ok, "Current conditions fetched")
	return current.toModel(uv), nil
}

func (s *ServiceImpl) FetchForecast(ctx context.Context, lat, lon float64, unit types.TemperatureUnit) ([]types.ForecastDay, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "FetchForecast", trace.WithAttributes(
		attribute.Float64("location.lat", lat),
		attribute.Float64("location.lon", lon),
		attribute.String("weather.unit", unit.APIValue()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "FetchForecast"))

	params := coordParams(lat, lon, s.apiKey)
	params.Set("units", unit.APIValue())

	var resp forecastResponse
	if err := s.getJSON(ctx, forecastPath, params, &resp); err != nil {
		l.ErrorContext(ctx, "Forecast request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Forecast request failed")
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}

	days := aggregateDaily(resp.List, resp.City.Timezone, s.now())
	l.DebugContext(ctx, "Forecast aggregated",
		slog.Int("samples", len(resp.List)),
		slog.Int("days", len(days)),
		slog.Int("timezone_offset", resp.City.Timezone),
	)
	span.SetStatus(codes.Ok, "Forecast fetched")
	return days, nil
}

// getJSON issues a rate-limited GET against the provider and decodes the body
// into dst, translating failures into the shared error taxonomy.
func (s *ServiceImpl) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("provider.path", path))
	start := time.Now()
	resp, err := s.client.Do(req)
	m.ProviderRequestDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	m.ProviderRequestsTotal.Add(ctx, 1, attrs)
	if err != nil {
		m.ProviderRequestErrorsTotal.Add(ctx, 1, attrs)
		return fmt.Errorf("openweather request failed: %w: %w", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		m.ProviderRequestErrorsTotal.Add(ctx, 1, attrs)
		return fmt.Errorf("failed to read response body: %w: %w", types.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		m.ProviderRequestErrorsTotal.Add(ctx, 1, attrs)
		var pe providerError
		_ = json.Unmarshal(body, &pe)
		return &types.RemoteError{Provider: "openweather", Status: resp.StatusCode, Message: pe.Message}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse response: %w: %w", types.ErrDecode, err)
	}
	return nil
}

func coordParams(lat, lon float64, apiKey string) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("appid", apiKey)
	return params
}
