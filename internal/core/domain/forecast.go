// Package domain contains the core business entities and domain logic for the
// textcast service. This package defines the fundamental types and business
// rules that are independent of external frameworks and infrastructure
// concerns.
package domain

import "fmt"

// Coordinates represent a geographic location using latitude and longitude.
// This follows the standard geographic coordinate system used worldwide.
type Coordinates struct {
	// Latitude specifies the north-south position (-90 to 90 degrees)
	Latitude float64

	// Longitude specifies the east-west position (-180 to 180 degrees)
	Longitude float64
}

// Validate checks if the coordinates are within valid geographic bounds.
// Latitude must be between -90 and 90 degrees (south to north poles).
// Longitude must be between -180 and 180 degrees (international date line).
// Both bounds are inclusive.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", c.Latitude)
	}

	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", c.Longitude)
	}

	return nil
}

// String renders the coordinates as a "lat,lng" pair with four decimal
// places, the form used when no place name is available for a location.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// CurrentConditions describe the nearest-term weather reading of a forecast.
type CurrentConditions struct {
	// Temperature is the current air temperature in degrees Celsius
	Temperature float64

	// FeelsLike is the apparent temperature in degrees Celsius
	FeelsLike float64

	// Humidity is the relative humidity as a whole-number percentage
	Humidity int

	// Description is a short human-readable condition, e.g. "Clear"
	Description string
}

// HourlyEntry is one short-interval reading following the current conditions.
type HourlyEntry struct {
	// Timestamp is the reading time as Unix epoch seconds
	Timestamp int64

	// Temperature is the forecast air temperature in degrees Celsius
	Temperature float64

	// Description is a short human-readable condition for the interval
	Description string
}

// ForecastSummary aggregates the full returned window (current + hourly).
type ForecastSummary struct {
	// High is the maximum temperature across current and hourly readings
	High float64

	// Low is the minimum temperature across current and hourly readings
	Low float64

	// PredominantCondition is the most frequent condition description
	// across current and hourly readings
	PredominantCondition string
}

// StandardizedForecast is the normalized result every weather provider
// produces. It is constructed once per successful provider call, consumed
// immediately by the formatter, and never persisted. Providers must populate
// it fully or fail the call; a partially-filled forecast is never returned.
type StandardizedForecast struct {
	// Location is a human-readable place name, falling back to a
	// "lat,lng" string when the source supplies no name
	Location string

	// Current holds the nearest-term conditions
	Current CurrentConditions

	// Hourly holds up to three subsequent readings in chronological
	// order, earliest first
	Hourly []HourlyEntry

	// Summary aggregates current and hourly readings
	Summary ForecastSummary
}

// NewSummary computes the forecast summary over the current conditions plus
// the hourly readings: High and Low are the maximum and minimum temperatures,
// and PredominantCondition is the most frequent description. A frequency tie
// is broken in favor of the lexicographically last description so the result
// does not depend on input or map iteration order.
func NewSummary(current CurrentConditions, hourly []HourlyEntry) ForecastSummary {
	high := current.Temperature
	low := current.Temperature
	counts := map[string]int{current.Description: 1}

	for _, h := range hourly {
		if h.Temperature > high {
			high = h.Temperature
		}
		if h.Temperature < low {
			low = h.Temperature
		}
		counts[h.Description]++
	}

	var predominant string
	best := 0
	for description, n := range counts {
		if n > best || (n == best && description > predominant) {
			predominant = description
			best = n
		}
	}

	return ForecastSummary{
		High:                 high,
		Low:                  low,
		PredominantCondition: predominant,
	}
}
