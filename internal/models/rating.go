package models

import "time"

// LineStatus classifies a line's loading against configured thresholds.
type LineStatus string

const (
	StatusOK       LineStatus = "OK"
	StatusWarning  LineStatus = "WARNING"
	StatusCritical LineStatus = "CRITICAL"
	StatusOverload LineStatus = "OVERLOAD"
)

// StatusThresholds are loading percentages delimiting the status bands.
// Bands are left-closed: loading < warning is OK, warning <= loading <
// critical is WARNING, critical <= loading < overload is CRITICAL, and
// loading >= overload is OVERLOAD. No overlap, no gaps.
type StatusThresholds struct {
	WarningPct  float64 `json:"warning_pct"`
	CriticalPct float64 `json:"critical_pct"`
	OverloadPct float64 `json:"overload_pct"`
}

// DefaultThresholds returns the standard 80/95/100 bands.
func DefaultThresholds() StatusThresholds {
	return StatusThresholds{WarningPct: 80, CriticalPct: 95, OverloadPct: 100}
}

// Classify maps a loading percentage to its status band.
func (t StatusThresholds) Classify(loadingPct float64) LineStatus {
	switch {
	case loadingPct >= t.OverloadPct:
		return StatusOverload
	case loadingPct >= t.CriticalPct:
		return StatusCritical
	case loadingPct >= t.WarningPct:
		return StatusWarning
	default:
		return StatusOK
	}
}

// AtLeastCritical reports whether the status is CRITICAL or worse.
func (s LineStatus) AtLeastCritical() bool {
	return s == StatusCritical || s == StatusOverload
}

// RatingResult is the outcome of one thermal rating evaluation for one line.
// Produced fresh on every evaluation, never mutated.
type RatingResult struct {
	LineName   string            `json:"line_name"`
	RatingAmps float64           `json:"rating_amps"`
	RatingMVA  float64           `json:"rating_mva"`
	Ambient    AmbientConditions `json:"ambient"`
	ComputedAt time.Time         `json:"computed_at"`
}

// LineSnapshot is the per-line view produced by an aggregation pass.
type LineSnapshot struct {
	LineName   string     `json:"line_name"`
	BranchName string     `json:"branch_name,omitempty"`
	FlowMVA    float64    `json:"flow_mva"`
	RatingAmps float64    `json:"rating_amps"`
	RatingMVA  float64    `json:"rating_mva"`
	LoadingPct float64    `json:"loading_pct"`
	VoltageKV  float64    `json:"voltage_kv"`
	Status     LineStatus `json:"status"`

	// Error is set when the line failed with a ComputationError. Failed
	// lines are excluded from aggregate statistics.
	Error string `json:"error,omitempty"`
}

// Failed reports whether this line was excluded from aggregation.
func (s *LineSnapshot) Failed() bool {
	return s.Error != ""
}

// SystemHealthSnapshot summarizes one aggregation pass over all lines.
type SystemHealthSnapshot struct {
	TotalLines       int       `json:"total_lines"`
	OKCount          int       `json:"ok"`
	WarningCount     int       `json:"warning"`
	CriticalCount    int       `json:"critical"`
	OverloadCount    int       `json:"overloaded"`
	FailedCount      int       `json:"failed"`
	AvgLoadingPct    float64   `json:"avg_loading"`
	MaxLoadingPct    float64   `json:"max_loading"`
	MostStressedLine string    `json:"most_stressed_line"`
	Timestamp        time.Time `json:"timestamp"`
}

// ForecastPoint is one hour of a forecast run. A full run is an ordered
// sequence of exactly 24 points with strictly increasing hour offsets.
type ForecastPoint struct {
	HourOffset int                  `json:"hour"`
	Ambient    AmbientConditions    `json:"ambient"`
	Health     SystemHealthSnapshot `json:"system_health"`
	Lines      []LineSnapshot       `json:"lines"`
}
