// Package weather integrates OpenWeatherMap as the ambient-conditions source.
// The Service layer caches the latest successful reading in Redis so rating
// requests keep working, flagged degraded, while the upstream is down.
package weather

import (
	"time"

	"github.com/linelink/linelink-go/internal/models"
)

const metersPerSecToFtPerSec = 3.28084

// AmbientReading is one observed or forecast weather sample for the grid
// area. Wind speed is already converted to ft/s.
type AmbientReading struct {
	TemperatureC     float64   `json:"temperature_c"`
	WindSpeedFtS     float64   `json:"wind_speed_ft_s"`
	WindDirectionDeg float64   `json:"wind_direction_deg"`
	Description      string    `json:"description"`
	Timestamp        time.Time `json:"timestamp"`
	HourOffset       int       `json:"hour_offset,omitempty"`
	Degraded         bool      `json:"degraded,omitempty"`
}

// ToAmbientConditions maps a reading onto the rating model's ambient inputs.
// Wind is assumed perpendicular to the conductor; the weather feed reports
// compass direction, not the angle of attack on any particular span.
func (r AmbientReading) ToAmbientConditions(atmosphere models.Atmosphere, latitudeDeg, elevationFt float64) models.AmbientConditions {
	return models.AmbientConditions{
		TemperatureC: r.TemperatureC,
		WindSpeedFtS: r.WindSpeedFtS,
		WindAngleDeg: 90,
		HourOfDay:    float64(r.Timestamp.Hour()),
		Date:         r.Timestamp,
		Atmosphere:   atmosphere,
		LatitudeDeg:  latitudeDeg,
		ElevationFt:  elevationFt,
	}
}
