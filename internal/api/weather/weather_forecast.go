package weather

import (
	"sort"
	"time"

	"github.com/glasscast/glasscast/internal/types"
)

const (
	maxForecastDays  = 5
	middayTargetHour = 12
	dayKeyLayout     = "2006-01-02"

	defaultCondition = "-"
	defaultIcon      = "01d"
)

// aggregateDaily folds 3-hourly forecast samples into per-day summaries.
// Samples are shifted by the location's UTC offset and bucketed by the local
// calendar day; the bucket for the current local day is discarded because it
// would only cover the remainder of today. At most maxForecastDays days are
// returned, ascending by date.
func aggregateDaily(items []forecastItem, offsetSeconds int, now time.Time) []types.ForecastDay {
	grouped := make(map[string][]forecastItem)
	for _, item := range items {
		key := dayKey(item.Dt, offsetSeconds)
		grouped[key] = append(grouped[key], item)
	}

	todayKey := dayKey(now.Unix(), offsetSeconds)
	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		if key != todayKey {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > maxForecastDays {
		keys = keys[:maxForecastDays]
	}

	days := make([]types.ForecastDay, 0, len(keys))
	for _, key := range keys {
		samples := grouped[key]
		minTemp := samples[0].Main.TempMin
		maxTemp := samples[0].Main.TempMax
		for _, s := range samples[1:] {
			if s.Main.TempMin < minTemp {
				minTemp = s.Main.TempMin
			}
			if s.Main.TempMax > maxTemp {
				maxTemp = s.Main.TempMax
			}
		}

		rep := middaySample(samples, offsetSeconds)
		condition := defaultCondition
		icon := defaultIcon
		if len(rep.Weather) > 0 {
			condition = rep.Weather[0].Main
			icon = rep.Weather[0].Icon
		}

		date, _ := time.Parse(dayKeyLayout, key)
		days = append(days, types.ForecastDay{
			Date:      date,
			Min:       minTemp,
			Max:       maxTemp,
			Condition: condition,
			Icon:      icon,
		})
	}
	return days
}

// middaySample picks the sample whose local hour is closest to noon. Ties keep
// the first minimal-distance sample in input order.
func middaySample(samples []forecastItem, offsetSeconds int) forecastItem {
	best := samples[0]
	bestDist := absInt(localHour(best.Dt, offsetSeconds) - middayTargetHour)
	for _, s := range samples[1:] {
		d := absInt(localHour(s.Dt, offsetSeconds) - middayTargetHour)
		if d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}

// dayKey derives the local calendar day by shifting the instant with the UTC
// offset and formatting the shifted instant as if it were UTC.
func dayKey(unixSeconds int64, offsetSeconds int) string {
	return time.Unix(unixSeconds+int64(offsetSeconds), 0).UTC().Format(dayKeyLayout)
}

func localHour(unixSeconds int64, offsetSeconds int) int {
	return time.Unix(unixSeconds+int64(offsetSeconds), 0).UTC().Hour()
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
