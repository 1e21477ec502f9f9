package types

import "time"

// TemperatureUnit is the global display unit preference. It is persisted
// across sessions and drives the unit parameter sent to the weather provider,
// so changing it requires a full re-fetch rather than a local conversion.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "celsius"
	UnitFahrenheit TemperatureUnit = "fahrenheit"
)

// APIValue returns the provider-side units parameter.
func (u TemperatureUnit) APIValue() string {
	if u == UnitFahrenheit {
		return "imperial"
	}
	return "metric"
}

func (u TemperatureUnit) Symbol() string {
	if u == UnitFahrenheit {
		return "°F"
	}
	return "°C"
}

// ParseTemperatureUnit falls back to celsius for anything unrecognized.
func ParseTemperatureUnit(s string) TemperatureUnit {
	if TemperatureUnit(s) == UnitFahrenheit {
		return UnitFahrenheit
	}
	return UnitCelsius
}

// CurrentWeather is the current-conditions view for one location. UVIndex and
// VisibilityMeters are nil when the provider omits them or the best-effort UV
// sub-request fails.
type CurrentWeather struct {
	Temp             float64  `json:"temp"`
	Condition        string   `json:"condition"`
	High             float64  `json:"high"`
	Low              float64  `json:"low"`
	Icon             string   `json:"icon"`
	Humidity         int      `json:"humidity"`
	WindSpeed        float64  `json:"wind_speed"`
	WindDeg          *float64 `json:"wind_deg,omitempty"`
	VisibilityMeters *float64 `json:"visibility_meters,omitempty"`
	UVIndex          *float64 `json:"uv_index,omitempty"`
}

// ForecastDay is one aggregated local calendar day. Date carries day
// granularity only (UTC midnight of the local-day key).
type ForecastDay struct {
	Date      time.Time `json:"date"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Condition string    `json:"condition"`
	Icon      string    `json:"icon"`
}
