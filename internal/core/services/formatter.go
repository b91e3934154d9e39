package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/textcast/textcast/internal/core/domain"
)

// hourColumnWidth fits the widest 12-hour clock label ("12PM").
const hourColumnWidth = 4

// FormatForecast renders a standardized forecast into the fixed four-section
// reply layout: header, current conditions, hourly lines, and summary. All
// temperatures are rounded to the nearest whole degree Celsius; hourly times
// use a 12-hour clock in UTC. An empty hourly sequence renders a labeled but
// empty section. The forecast must be non-nil; callers enforce that.
func FormatForecast(f *domain.StandardizedForecast) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Weather for %s\n\n", f.Location)
	fmt.Fprintf(&b, "Right now: %s %s\n", formatTemp(f.Current.Temperature), f.Current.Description)
	fmt.Fprintf(&b, "Feels like %s | Humidity: %d%%\n\n", formatTemp(f.Current.FeelsLike), f.Current.Humidity)

	b.WriteString("Next few hours:\n")

	for _, h := range f.Hourly {
		clock := time.Unix(h.Timestamp, 0).UTC().Format("3PM")
		fmt.Fprintf(&b, "%s %s %s\n", runewidth.FillLeft(clock, hourColumnWidth), formatTemp(h.Temperature), h.Description)
	}

	fmt.Fprintf(&b, "\nHigh: %s Low: %s\n", formatTemp(f.Summary.High), formatTemp(f.Summary.Low))
	fmt.Fprintf(&b, "Predominantly %s", f.Summary.PredominantCondition)

	return b.String()
}

// formatTemp renders a temperature rounded to the nearest whole degree.
func formatTemp(v float64) string {
	return fmt.Sprintf("%d°C", int(math.Round(v)))
}
