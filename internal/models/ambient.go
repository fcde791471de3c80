package models

import (
	"time"

	"github.com/linelink/linelink-go/internal/utils"
)

// Atmosphere categorizes atmospheric clarity for solar gain.
type Atmosphere string

const (
	AtmosphereClear      Atmosphere = "Clear"
	AtmosphereIndustrial Atmosphere = "Industrial"
)

// AmbientConditions is the weather snapshot a rating is evaluated against.
// Value object, one per evaluation instant.
type AmbientConditions struct {
	// TemperatureC is the ambient air temperature in degrees Celsius.
	TemperatureC float64 `json:"temperature_c"`

	// WindSpeedFtS is the wind velocity in ft/s.
	WindSpeedFtS float64 `json:"wind_speed_ft_s" validate:"gte=0"`

	// WindAngleDeg is the angle between wind and conductor in degrees.
	// 90 is perpendicular (maximum cooling).
	WindAngleDeg float64 `json:"wind_angle_deg" validate:"gte=0,lte=90"`

	// HourOfDay drives the solar position, in [0,24).
	HourOfDay float64 `json:"hour_of_day" validate:"gte=0,lt=24"`

	// Date supplies the day of year for solar calculations.
	Date time.Time `json:"date"`

	Atmosphere  Atmosphere `json:"atmosphere" validate:"oneof=Clear Industrial"`
	LatitudeDeg float64    `json:"latitude_deg" validate:"gte=-90,lte=90"`
	ElevationFt float64    `json:"elevation_ft" validate:"gte=0"`
}

// Validate rejects physically invalid conditions before any numeric work.
func (a *AmbientConditions) Validate() error {
	if err := validate.Struct(a); err != nil {
		return utils.NewValidationErrorf("invalid ambient conditions: %v", err)
	}
	return nil
}
