package models

import (
	"github.com/linelink/linelink-go/internal/utils"
)

// ConductorSpec holds the physical and electrical properties of a conductor
// type from the conductor library. Reference data, loaded once and never
// mutated.
type ConductorSpec struct {
	Name string `json:"name" validate:"required"`

	// DiameterIn is the outside diameter in inches.
	DiameterIn float64 `json:"diameter_in" validate:"gt=0"`

	// Resistance is linearly interpolated between two reference points:
	// RLoOhmPerFt at TLoC and RHiOhmPerFt at THiC (ohms per foot).
	TLoC        float64 `json:"t_lo_c"`
	THiC        float64 `json:"t_hi_c" validate:"gtfield=TLoC"`
	RLoOhmPerFt float64 `json:"r_lo_ohm_per_ft" validate:"gt=0"`
	RHiOhmPerFt float64 `json:"r_hi_ohm_per_ft" validate:"gtfield=RLoOhmPerFt"`

	// Surface properties, typically 0.8 for weathered ACSR.
	Emissivity   float64 `json:"emissivity" validate:"gt=0,lte=1"`
	Absorptivity float64 `json:"absorptivity" validate:"gt=0,lte=1"`
}

// Validate checks the conductor properties are physically meaningful.
func (c *ConductorSpec) Validate() error {
	if err := validate.Struct(c); err != nil {
		return utils.NewValidationErrorf("invalid conductor %q: %v", c.Name, err)
	}
	return nil
}

// ResistanceAt returns the conductor resistance in ohms/ft at the given
// temperature, linearly interpolated between the two reference points.
// The floor keeps a later division well defined for degenerate data.
func (c *ConductorSpec) ResistanceAt(tempC float64) float64 {
	slope := (c.RHiOhmPerFt - c.RLoOhmPerFt) / (c.THiC - c.TLoC)
	r := c.RLoOhmPerFt + slope*(tempC-c.TLoC)
	if r < 1e-10 {
		return 1e-10
	}
	return r
}
