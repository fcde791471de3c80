package models

import "time"

// Severity of an alert, derived from line status.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityOverload Severity = "OVERLOAD"
)

// SeverityForStatus maps a CRITICAL-or-worse status to its alert severity.
// The second return is false for statuses that never alert.
func SeverityForStatus(s LineStatus) (Severity, bool) {
	switch s {
	case StatusCritical:
		return SeverityCritical, true
	case StatusOverload:
		return SeverityOverload, true
	default:
		return "", false
	}
}

// AlertCandidate is a stressed line under consideration for notification.
type AlertCandidate struct {
	Snapshot   LineSnapshot `json:"snapshot"`
	Severity   Severity     `json:"severity"`
	DetectedAt time.Time    `json:"detected_at"`
}

// AlertRecord is the persisted trace of an alert that survived cooldown
// selection. The only long-lived mutable state in the core is the last-sent
// time tracked by the cooldown store; records themselves are append-only.
type AlertRecord struct {
	ID         string    `json:"id" db:"id"`
	LineName   string    `json:"line_name" db:"line_name"`
	BranchName string    `json:"branch_name" db:"branch_name"`
	Severity   Severity  `json:"severity" db:"severity"`
	LoadingPct float64   `json:"loading_pct" db:"loading_pct"`
	RatingMVA  float64   `json:"rating_mva" db:"rating_mva"`
	FlowMVA    float64   `json:"flow_mva" db:"flow_mva"`
	VoltageKV  float64   `json:"voltage_kv" db:"voltage_kv"`
	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
	SentAt     time.Time `json:"sent_at" db:"sent_at"`
}

// AlertBatch is the engine's output: what to notify and whom. SMS carries
// only the top-priority candidates, email carries every survivor. The engine
// never performs delivery itself.
type AlertBatch struct {
	SMS         []AlertCandidate `json:"sms"`
	Email       []AlertCandidate `json:"email"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Empty reports whether the batch carries no candidates.
func (b *AlertBatch) Empty() bool {
	return len(b.Email) == 0
}
