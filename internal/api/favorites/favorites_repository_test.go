package favorites

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
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

type staticCreds struct {
	token  string
	userID uuid.UUID
}

func (c staticCreds) AccessToken() string { return c.token }

func (c staticCreds) UserID() (uuid.UUID, bool) {
	if c.userID == uuid.Nil {
		return uuid.Nil, false
	}
	return c.userID, true
}

func newTestRepo(t *testing.T, token string, handler http.Handler) *SupabaseRepository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSupabaseRepository(server.URL, "anon-key", staticCreds{token: token}, server.Client(), testLogger())
}

func favoriteRow(name string) map[string]any {
	return map[string]any{
		"id":         uuid.New().String(),
		"user_id":    uuid.New().String(),
		"city_name":  name,
		"lat":        48.85,
		"lon":        2.35,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
}

func TestSupabaseList(t *testing.T) {
	t.Run("lists rows ordered by creation time", func(t *testing.T) {
		repo := newTestRepo(t, "user-token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, restPath, r.URL.Path)
			assert.Equal(t, "created_at.asc", r.URL.Query().Get("order"))
			assert.Equal(t, "anon-key", r.Header.Get("apikey"))
			assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

			require.NoError(t, json.NewEncoder(w).Encode([]map[string]any{
				favoriteRow("Paris, FR"),
				favoriteRow("Lisbon, PT"),
			}))
		}))

		rows, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Paris, FR", rows[0].CityName)
		assert.Equal(t, "Lisbon, PT", rows[1].CityName)
	})

	t.Run("signed-out callers fall back to the anon key", func(t *testing.T) {
		repo := newTestRepo(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("[]"))
		}))

		rows, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("rejections surface as remote errors", func(t *testing.T) {
		repo := newTestRepo(t, "user-token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"JWT expired"}`))
		}))

		_, err := repo.List(context.Background())
		require.Error(t, err)
		re, ok := types.AsRemote(err)
		require.True(t, ok)
		assert.Equal(t, "supabase", re.Provider)
		assert.Equal(t, "JWT expired", re.Message)
	})
}

func TestSupabaseAdd(t *testing.T) {
	t.Run("posts the row and returns the representation", func(t *testing.T) {
		repo := newTestRepo(t, "user-token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

			var payload []map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Len(t, payload, 1)
			assert.Equal(t, "Paris, FR", payload[0]["city_name"])

			w.WriteHeader(http.StatusCreated)
			require.NoError(t, json.NewEncoder(w).Encode([]map[string]any{favoriteRow("Paris, FR")}))
		}))

		created, err := repo.Add(context.Background(), "Paris, FR", 48.85, 2.35)
		require.NoError(t, err)
		assert.Equal(t, "Paris, FR", created.CityName)
		assert.NotEqual(t, uuid.Nil, created.ID)
	})

	t.Run("empty representation yields a placeholder instead of an error", func(t *testing.T) {
		repo := newTestRepo(t, "user-token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("[]"))
		}))

		created, err := repo.Add(context.Background(), "Paris, FR", 48.85, 2.35)
		require.NoError(t, err)
		assert.Equal(t, "-", created.CityName)
		assert.NotEqual(t, uuid.Nil, created.ID)
	})
}

func TestSupabaseRemove(t *testing.T) {
	t.Run("deletes by id filter", func(t *testing.T) {
		id := uuid.New()
		repo := newTestRepo(t, "user-token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "eq."+id.String(), r.URL.Query().Get("id"))
			w.WriteHeader(http.StatusNoContent)
		}))

		assert.NoError(t, repo.Remove(context.Background(), id))
	})

	t.Run("removing an already-deleted row succeeds", func(t *testing.T) {
		// PostgREST answers 204 regardless of whether the filter matched rows.
		repo := newTestRepo(t, "user-token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		assert.NoError(t, repo.Remove(context.Background(), uuid.New()))
		assert.NoError(t, repo.Remove(context.Background(), uuid.New()))
	})
}
