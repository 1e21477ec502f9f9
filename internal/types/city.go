package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GeocodeCity is a geocoding search result. It has no server id; identity is
// derived from name plus coordinates.
type GeocodeCity struct {
	Name    string  `json:"name"`
	State   *string `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (c GeocodeCity) Key() string {
	return fmt.Sprintf("%s-%v-%v", c.Name, c.Lat, c.Lon)
}

func (c GeocodeCity) DisplayName() string {
	if c.State != nil && *c.State != "" {
		return fmt.Sprintf("%s, %s, %s", c.Name, *c.State, c.Country)
	}
	return fmt.Sprintf("%s, %s", c.Name, c.Country)
}

// FavoriteCity matches the favorite_cities table structure. The id and
// created_at are always server-assigned.
type FavoriteCity struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CityName  string    `json:"city_name"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	CreatedAt time.Time `json:"created_at"`
}

// PlaceholderFavorite stands in for a created row when the insert response
// comes back empty. Should not happen under correct server behavior.
func PlaceholderFavorite() FavoriteCity {
	return FavoriteCity{ID: uuid.New(), UserID: uuid.New(), CityName: "-"}
}
