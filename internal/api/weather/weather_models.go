package weather

import "github.com/glasscast/glasscast/internal/types"

// Response payloads mirroring the OpenWeather API shapes. Kept private; the
// rest of the app only sees internal/types models.

type conditionEntry struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Weather []conditionEntry `json:"weather"`
	Main    struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
}

func (r currentResponse) toModel(uv *float64) *types.CurrentWeather {
	condition := defaultCondition
	icon := defaultIcon
	if len(r.Weather) > 0 {
		condition = r.Weather[0].Main
		icon = r.Weather[0].Icon
	}
	return &types.CurrentWeather{
		Temp:             r.Main.Temp,
		Condition:        condition,
		High:             r.Main.TempMax,
		Low:              r.Main.TempMin,
		Icon:             icon,
		Humidity:         r.Main.Humidity,
		WindSpeed:        r.Wind.Speed,
		WindDeg:          r.Wind.Deg,
		VisibilityMeters: r.Visibility,
		UVIndex:          uv,
	}
}

type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
		Icon string `json:"icon"`
	} `json:"weather"`
}

type forecastResponse struct {
	List []forecastItem `json:"list"`
	City struct {
		// Timezone is the location's UTC offset in seconds.
		Timezone int `json:"timezone"`
	} `json:"city"`
}

type uvResponse struct {
	Value *float64 `json:"value"`
}

// providerError is OpenWeather's error envelope ({"cod": ..., "message": ...}).
type providerError struct {
	Message string `json:"message"`
}
