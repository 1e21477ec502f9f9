package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/glasscast/glasscast/app/db"
	"github.com/glasscast/glasscast/app/debug"
	"github.com/glasscast/glasscast/app/observability/tracer"
	"github.com/glasscast/glasscast/config"
	"github.com/glasscast/glasscast/internal/api/auth"
	"github.com/glasscast/glasscast/internal/api/favorites"
	"github.com/glasscast/glasscast/internal/api/home"
	"github.com/glasscast/glasscast/internal/api/search"
	"github.com/glasscast/glasscast/internal/api/settings"
	"github.com/glasscast/glasscast/internal/api/weather"
	"github.com/glasscast/glasscast/internal/cli"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	// Fail fast on missing credentials rather than limping along.
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	if err := tracer.InitTracingAndMetrics(); err != nil {
		logger.Error("Failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Services ---
	httpClient := &http.Client{Timeout: 10 * time.Second}

	weatherSvc := weather.NewService(weather.ClientConfig{
		APIKey:  cfg.OpenWeather.APIKey,
		BaseURL: cfg.OpenWeather.BaseURL,
		Client:  httpClient,
	}, logger)

	prefs, err := settings.NewFileStore(cfg.Settings.Path, logger)
	if err != nil {
		logger.Error("Failed to open settings store", slog.Any("error", err))
		os.Exit(1)
	}

	authSvc := auth.NewService(cfg.Supabase.URL, cfg.Supabase.AnonKey, httpClient, logger)
	sessionStore := auth.NewSessionStore(authSvc, prefs, logger)
	defer sessionStore.Close()

	favoritesRepo, cleanup, err := buildFavoritesRepo(ctx, &cfg, sessionStore, httpClient, logger)
	if err != nil {
		logger.Error("Failed to set up favorites store", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()
	favoritesSvc := favorites.NewService(favoritesRepo, logger)

	// --- Controllers ---
	searchCtrl := search.NewController(weatherSvc, favoritesSvc, cfg.Search.Debounce, logger)
	homeCtrl := home.NewController(weatherSvc, favoritesSvc, prefs, logger)

	// --- Optional debug listener (metrics + health) ---
	var debugSrv *debug.Server
	if cfg.Debug.Port != "" {
		debugSrv = debug.NewServer(cfg.Debug.Port, logger)
		go func() {
			if err := debugSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Debug server error", slog.Any("error", err))
			}
		}()
	}

	// --- Interactive loop ---
	app := cli.NewApp(authSvc, sessionStore, searchCtrl, homeCtrl, os.Stdin, os.Stdout, logger)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("CLI terminated with error", slog.Any("error", err))
	}

	// --- Graceful Shutdown ---
	if debugSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Debug server graceful shutdown failed", slog.Any("error", err))
		}
	}
	logger.Info("Application shut down complete.")
}

// buildFavoritesRepo selects the favorites backend: the hosted row store by
// default, or a direct Postgres connection (with migrations) when configured.
func buildFavoritesRepo(ctx context.Context, cfg *config.Config, creds favorites.Credentials, client *http.Client, logger *slog.Logger) (favorites.Repository, func(), error) {
	if cfg.Favorites.Backend != "postgres" {
		repo := favorites.NewSupabaseRepository(cfg.Supabase.URL, cfg.Supabase.AnonKey, creds, client, logger)
		return repo, func() {}, nil
	}

	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return nil, nil, err
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		return nil, nil, err
	}
	if !database.WaitForDB(ctx, pool, logger) {
		pool.Close()
		return nil, nil, errors.New("database not ready after waiting")
	}
	return favorites.NewPostgresRepository(pool, creds, logger), pool.Close, nil
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	var logger *slog.Logger

	if mode == "development" || mode == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stderr, tintOpts))
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, jsonOpts))
	}
	return logger
}
