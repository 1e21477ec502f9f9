package settings

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasscast/glasscast/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileStore(t *testing.T) {
	t.Run("defaults to celsius", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "settings.yml"), testLogger())
		require.NoError(t, err)
		assert.Equal(t, types.UnitCelsius, store.Unit())
	})

	t.Run("unit survives a reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yml")

		store, err := NewFileStore(path, testLogger())
		require.NoError(t, err)
		require.NoError(t, store.SetUnit(types.UnitFahrenheit))

		reopened, err := NewFileStore(path, testLogger())
		require.NoError(t, err)
		assert.Equal(t, types.UnitFahrenheit, reopened.Unit())
	})

	t.Run("session tokens survive a reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yml")

		store, err := NewFileStore(path, testLogger())
		require.NoError(t, err)
		require.NoError(t, store.StoreSession("access-token", "refresh-token"))

		reopened, err := NewFileStore(path, testLogger())
		require.NoError(t, err)
		access, refresh := reopened.StoredSession()
		assert.Equal(t, "access-token", access)
		assert.Equal(t, "refresh-token", refresh)
	})

	t.Run("clearing the session removes both tokens", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yml")

		store, err := NewFileStore(path, testLogger())
		require.NoError(t, err)
		require.NoError(t, store.StoreSession("access-token", "refresh-token"))
		require.NoError(t, store.ClearSession())

		access, refresh := store.StoredSession()
		assert.Empty(t, access)
		assert.Empty(t, refresh)

		reopened, err := NewFileStore(path, testLogger())
		require.NoError(t, err)
		access, refresh = reopened.StoredSession()
		assert.Empty(t, access)
		assert.Empty(t, refresh)
	})

	t.Run("unknown unit strings fall back to celsius", func(t *testing.T) {
		assert.Equal(t, types.UnitCelsius, types.ParseTemperatureUnit("kelvin"))
	})
}
