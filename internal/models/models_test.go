package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linelink/linelink-go/internal/utils"
)

func validConductor() ConductorSpec {
	return ConductorSpec{
		Name:         "336.4 ACSR 30/7 ORIOLE",
		DiameterIn:   0.3705,
		TLoC:         25,
		THiC:         50,
		RLoOhmPerFt:  0.2708 / 5280,
		RHiOhmPerFt:  0.2974 / 5280,
		Emissivity:   0.8,
		Absorptivity: 0.8,
	}
}

func validAmbient() AmbientConditions {
	return AmbientConditions{
		TemperatureC: 25,
		WindSpeedFtS: 6.56,
		WindAngleDeg: 90,
		HourOfDay:    12,
		Date:         time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Atmosphere:   AtmosphereClear,
		LatitudeDeg:  27,
		ElevationFt:  1000,
	}
}

func TestConductorSpec_Validate(t *testing.T) {
	c := validConductor()
	require.NoError(t, c.Validate())

	bad := validConductor()
	bad.DiameterIn = 0
	err := bad.Validate()
	require.Error(t, err)
	var ve *utils.ValidationError
	assert.True(t, errors.As(err, &ve))

	bad = validConductor()
	bad.RLoOhmPerFt = bad.RHiOhmPerFt // RLo >= RHi is not physical
	assert.Error(t, bad.Validate())

	bad = validConductor()
	bad.THiC = bad.TLoC
	assert.Error(t, bad.Validate())

	bad = validConductor()
	bad.Emissivity = 1.5
	assert.Error(t, bad.Validate())
}

func TestAmbientConditions_Validate(t *testing.T) {
	a := validAmbient()
	require.NoError(t, a.Validate())

	bad := validAmbient()
	bad.WindSpeedFtS = -1
	assert.Error(t, bad.Validate())

	bad = validAmbient()
	bad.HourOfDay = 24 // interval is [0,24)
	assert.Error(t, bad.Validate())

	bad = validAmbient()
	bad.HourOfDay = -0.5
	assert.Error(t, bad.Validate())

	bad = validAmbient()
	bad.Atmosphere = "Hazy"
	assert.Error(t, bad.Validate())

	bad = validAmbient()
	bad.LatitudeDeg = 91
	assert.Error(t, bad.Validate())
}

func TestConductorSpec_ResistanceAt(t *testing.T) {
	c := validConductor()

	assert.InDelta(t, c.RLoOhmPerFt, c.ResistanceAt(25), 1e-12)
	assert.InDelta(t, c.RHiOhmPerFt, c.ResistanceAt(50), 1e-12)

	// Midpoint interpolates linearly.
	mid := (c.RLoOhmPerFt + c.RHiOhmPerFt) / 2
	assert.InDelta(t, mid, c.ResistanceAt(37.5), 1e-12)

	// Extrapolation beyond THi follows the same slope.
	r75 := c.ResistanceAt(75)
	assert.Greater(t, r75, c.RHiOhmPerFt)
}

func TestStatusThresholds_ClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		loading float64
		want    LineStatus
	}{
		{0, StatusOK},
		{79.999, StatusOK},
		{80.000, StatusWarning},
		{94.999, StatusWarning},
		{95.000, StatusCritical},
		{99.999, StatusCritical},
		{100.000, StatusOverload},
		{250, StatusOverload},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, th.Classify(tc.loading), "loading %.3f%%", tc.loading)
	}
}

func TestSeverityForStatus(t *testing.T) {
	sev, ok := SeverityForStatus(StatusCritical)
	assert.True(t, ok)
	assert.Equal(t, SeverityCritical, sev)

	sev, ok = SeverityForStatus(StatusOverload)
	assert.True(t, ok)
	assert.Equal(t, SeverityOverload, sev)

	_, ok = SeverityForStatus(StatusWarning)
	assert.False(t, ok)

	_, ok = SeverityForStatus(StatusOK)
	assert.False(t, ok)
}

func TestLineSnapshot_Failed(t *testing.T) {
	s := LineSnapshot{LineName: "L0"}
	assert.False(t, s.Failed())

	s.Error = "unknown conductor"
	assert.True(t, s.Failed())
}
