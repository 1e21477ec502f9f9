package settings

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/glasscast/glasscast/internal/types"
)

const (
	keyTemperatureUnit = "temperature_unit"
	keyAccessToken     = "session.access_token"
	keyRefreshToken    = "session.refresh_token"
)

var _ Service = (*FileStore)(nil)

// Service is the persisted key-value preference store: the global temperature
// unit and the identity provider's session tokens survive restarts through it.
type Service interface {
	Unit() types.TemperatureUnit
	SetUnit(unit types.TemperatureUnit) error

	StoredSession() (accessToken, refreshToken string)
	StoreSession(accessToken, refreshToken string) error
	ClearSession() error
}

// FileStore keeps preferences in a small yml file in the user config dir.
type FileStore struct {
	logger *slog.Logger

	mu   sync.Mutex
	v    *viper.Viper
	path string
}

func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user config dir: %w", err)
		}
		path = filepath.Join(dir, "glasscast", "settings.yml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yml")
	v.SetDefault(keyTemperatureUnit, string(types.UnitCelsius))

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		logger.Debug("No settings file yet, starting with defaults", slog.String("path", path))
	}

	return &FileStore{logger: logger, v: v, path: path}, nil
}

func (s *FileStore) Unit() types.TemperatureUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.ParseTemperatureUnit(s.v.GetString(keyTemperatureUnit))
}

func (s *FileStore) SetUnit(unit types.TemperatureUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keyTemperatureUnit, string(unit))
	return s.write()
}

func (s *FileStore) StoredSession() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(keyAccessToken), s.v.GetString(keyRefreshToken)
}

func (s *FileStore) StoreSession(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keyAccessToken, accessToken)
	s.v.Set(keyRefreshToken, refreshToken)
	return s.write()
}

func (s *FileStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keyAccessToken, "")
	s.v.Set(keyRefreshToken, "")
	return s.write()
}

func (s *FileStore) write() error {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}
