package models

import (
	"github.com/linelink/linelink-go/internal/utils"
)

// Bus is a named substation bus with a nominal voltage.
type Bus struct {
	Name      string  `json:"name" validate:"required"`
	VoltageKV float64 `json:"v_nom" validate:"gt=0"`
}

// LineSpec describes one transmission line. Immutable for the process
// lifetime; reload requires an explicit griddata reload.
type LineSpec struct {
	Name       string `json:"name" validate:"required"`
	BranchName string `json:"branch_name"`
	Bus0       string `json:"bus0" validate:"required"`
	Bus1       string `json:"bus1" validate:"required"`

	// Conductor references a ConductorSpec by name.
	Conductor string `json:"conductor" validate:"required"`

	// MaxOperatingTempC is the MOT the rating is derived against.
	MaxOperatingTempC float64 `json:"mot_c" validate:"gt=0"`

	// NominalFlowMVA is held constant across the forecast horizon.
	NominalFlowMVA float64 `json:"flow_mva" validate:"gte=0"`

	// VoltageKV is derived from the bus0 endpoint at load time.
	VoltageKV float64 `json:"voltage_kv" validate:"gt=0"`
}

// Validate checks the line definition.
func (l *LineSpec) Validate() error {
	if err := validate.Struct(l); err != nil {
		return utils.NewValidationErrorf("invalid line %q: %v", l.Name, err)
	}
	return nil
}

// ConductorLookup resolves a conductor name to its spec.
type ConductorLookup interface {
	Conductor(name string) (*ConductorSpec, bool)
}
