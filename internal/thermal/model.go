// Package thermal implements the IEEE-738-style steady-state thermal rating
// of overhead transmission conductors. At steady state the heat balance
//
//	q_convection + q_radiation = q_solar + I²·R(Tc)
//
// is solved for I with the conductor held at its limit temperature Tc. All
// functions are pure; rating evaluations may run on any number of goroutines.
package thermal

import (
	"math"
	"time"

	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/utils"
)

const stefanBoltzmann = 5.67e-8 // W/(m²·K⁴)

// Rate computes the steady-state current rating (ampacity) in amps for a
// conductor held at limitTempC under the given ambient conditions.
//
// A zero rating is a valid result, not a fault: when net cooling is negative
// the conductor exceeds its limit even unloaded.
func Rate(c *models.ConductorSpec, ambient models.AmbientConditions, limitTempC float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if err := ambient.Validate(); err != nil {
		return 0, err
	}
	if limitTempC <= 0 {
		return 0, utils.NewValidationErrorf("limit temperature must be positive, got %.2f", limitTempC)
	}

	qc := convectiveLoss(c, ambient, limitTempC)
	qr := radiativeLoss(c, ambient, limitTempC)
	qs := solarGain(c, ambient)

	netCooling := qc + qr - qs
	if netCooling <= 0 {
		return 0, nil
	}

	resistance := c.ResistanceAt(limitTempC)
	currentSquared := netCooling / resistance
	if math.IsNaN(currentSquared) || math.IsInf(currentSquared, 0) {
		return 0, utils.NewComputationError(c.Name, "heat balance produced a non-finite radicand")
	}

	return math.Sqrt(currentSquared), nil
}

// RatingFor evaluates a line's conductor at the line's maximum operating
// temperature and exposes the result in both amps and MVA at the line's
// voltage class.
func RatingFor(line *models.LineSpec, c *models.ConductorSpec, ambient models.AmbientConditions, now time.Time) (*models.RatingResult, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}

	amps, err := Rate(c, ambient, line.MaxOperatingTempC)
	if err != nil {
		return nil, err
	}

	return &models.RatingResult{
		LineName:   line.Name,
		RatingAmps: amps,
		RatingMVA:  AmpsToMVA(amps, line.VoltageKV),
		Ambient:    ambient,
		ComputedAt: now,
	}, nil
}

// AmpsToMVA converts a three-phase current rating to apparent power:
// MVA = √3 · I · V · 1e-6.
func AmpsToMVA(amps, voltageKV float64) float64 {
	return math.Sqrt(3) * amps * (voltageKV * 1000) * 1e-6
}

// convectiveLoss returns convective cooling in W/ft, the larger of the
// natural and forced convection correlations. The forced term is scaled by
// the wind direction factor, maximal for perpendicular wind.
func convectiveLoss(c *models.ConductorSpec, ambient models.AmbientConditions, limitTempC float64) float64 {
	filmTempC := (limitTempC + ambient.TemperatureC) / 2

	density := airDensity(filmTempC, ambient.ElevationFt)
	viscosity := airViscosity(filmTempC)
	conductivity := airThermalConductivity(filmTempC)

	diameterFt := c.DiameterIn / 12
	reynolds := density * ambient.WindSpeedFtS * diameterFt / viscosity

	deltaT := limitTempC - ambient.TemperatureC

	// Nusselt correlations per unit length; hc = Nu·k/D.
	natural := 0.65 * conductivity / diameterFt * math.Pi * diameterFt * deltaT
	forcedNu := 0.65 + 0.2*math.Pow(reynolds, 0.6)
	forced := windDirectionFactor(ambient.WindAngleDeg) * forcedNu * conductivity / diameterFt * math.Pi * diameterFt * deltaT

	q := math.Max(natural, forced)
	if q < 0 {
		return 0
	}
	return q
}

// windDirectionFactor attenuates forced convection for wind that is not
// perpendicular to the conductor. Equals 1 at 90° and 0.388 for parallel wind.
func windDirectionFactor(angleDeg float64) float64 {
	phi := angleDeg * math.Pi / 180
	return 1.194 - math.Cos(phi) + 0.194*math.Cos(2*phi) + 0.368*math.Sin(2*phi)
}

// radiativeLoss returns radiative cooling in W/ft via the Stefan–Boltzmann
// law over the conductor surface per unit length.
func radiativeLoss(c *models.ConductorSpec, ambient models.AmbientConditions, limitTempC float64) float64 {
	tcK := limitTempC + 273.15
	taK := ambient.TemperatureC + 273.15

	diameterM := c.DiameterIn * 0.0254
	qPerM := c.Emissivity * stefanBoltzmann * math.Pi * diameterM *
		(math.Pow(tcK, 4) - math.Pow(taK, 4))

	q := qPerM * 0.3048 // W/m to W/ft
	if q < 0 {
		return 0
	}
	return q
}
