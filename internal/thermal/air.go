package thermal

import "math"

// Air properties evaluated at the film temperature (average of conductor and
// ambient temperature). Units follow the imperial convention of the conductor
// library: lb, ft, s, with heat in watts.

// airDensity returns air density in lb/ft³, corrected for elevation.
func airDensity(tempC, elevationFt float64) float64 {
	const rho0 = 0.0765 // lb/ft³ at sea level, 15°C

	tempK := tempC + 273.15
	refK := 15 + 273.15
	elevationFactor := math.Exp(-elevationFt / 30000)

	return rho0 * (refK / tempK) * elevationFactor
}

// airViscosity returns dynamic viscosity in lb/(ft·s) via Sutherland's formula.
func airViscosity(tempC float64) float64 {
	const (
		muRef      = 1.716e-5 // Pa·s at 273 K
		tRef       = 273.15
		sutherland = 110.4
	)

	tempK := tempC + 273.15
	muSI := muRef * math.Pow(tempK/tRef, 1.5) * ((tRef + sutherland) / (tempK + sutherland))

	return muSI * 0.0208854 // Pa·s to lb/(ft·s)
}

// airThermalConductivity returns thermal conductivity in W/(ft·°C),
// linearized around ambient conditions.
func airThermalConductivity(tempC float64) float64 {
	kSI := 0.023 + 0.00007*tempC // W/(m·K)
	return kSI * 0.3048
}
