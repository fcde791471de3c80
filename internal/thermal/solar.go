package thermal

import (
	"math"

	"github.com/linelink/linelink-go/internal/models"
)

// Base solar irradiance at solar noon on a clear day, W/m². The industrial
// category attenuates for particulate haze.
const (
	clearSkyIrradiance   = 1000.0
	industrialIrradiance = 850.0

	// Flat seasonal attenuation. The hour-angle term dominates the solar
	// contribution; the rating itself is only weakly sensitive to the
	// residual seasonal variation.
	seasonFactor = 0.9
)

// solarIrradiance returns the effective incident solar flux in W/m² for the
// given ambient conditions. The sun's hour angle advances 15° per hour from
// solar noon; flux is zero once the sun is below the horizon.
func solarIrradiance(ambient models.AmbientConditions) float64 {
	base := clearSkyIrradiance
	if ambient.Atmosphere == models.AtmosphereIndustrial {
		base = industrialIrradiance
	}

	hourAngleDeg := 15 * math.Abs(ambient.HourOfDay-12)
	timeFactor := math.Cos(hourAngleDeg * math.Pi / 180)
	if timeFactor < 0 {
		timeFactor = 0
	}

	return base * timeFactor * seasonFactor
}

// solarGain returns solar heat gain per unit length in W/ft. The projected
// area of a cylindrical conductor per unit length is its diameter.
func solarGain(c *models.ConductorSpec, ambient models.AmbientConditions) float64 {
	diameterM := c.DiameterIn * 0.0254
	qPerM := c.Absorptivity * solarIrradiance(ambient) * diameterM

	q := qPerM * 0.3048 // W/m to W/ft
	if q < 0 {
		return 0
	}
	return q
}
