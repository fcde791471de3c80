package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linelink/linelink-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// RatingHistoryEntry is one persisted line rating calculation.
type RatingHistoryEntry struct {
	ID         int64             `json:"id" db:"id"`
	Timestamp  time.Time         `json:"timestamp" db:"timestamp"`
	LineName   string            `json:"line_name" db:"line_name"`
	BranchName string            `json:"branch_name" db:"branch_name"`
	RatingAmps float64           `json:"rating_amps" db:"rating_amps"`
	RatingMVA  float64           `json:"rating_mva" db:"rating_mva"`
	FlowMVA    float64           `json:"flow_mva" db:"flow_mva"`
	LoadingPct float64           `json:"loading_pct" db:"loading_pct"`
	Status     models.LineStatus `json:"status" db:"status"`
	VoltageKV  float64           `json:"voltage_kv" db:"voltage_kv"`
}

// RatingRepository persists line rating history.
type RatingRepository struct {
	pool DatabasePool
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(pool DatabasePool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// SaveRating appends one line snapshot to the rating history.
func (r *RatingRepository) SaveRating(ctx context.Context, snapshot *models.LineSnapshot, at time.Time) error {
	query := `
		INSERT INTO line_rating_history
			(timestamp, line_name, branch_name, rating_amps, rating_mva, flow_mva, loading_pct, status, voltage_kv)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		at,
		snapshot.LineName,
		snapshot.BranchName,
		snapshot.RatingAmps,
		snapshot.RatingMVA,
		snapshot.FlowMVA,
		snapshot.LoadingPct,
		string(snapshot.Status),
		snapshot.VoltageKV,
	)
	if err != nil {
		return fmt.Errorf("failed to save rating for line %s: %w", snapshot.LineName, err)
	}
	return nil
}

// RecentRatings returns the newest rating history entries for a line,
// newest first.
func (r *RatingRepository) RecentRatings(ctx context.Context, lineName string, limit int) ([]RatingHistoryEntry, error) {
	query := `
		SELECT id, timestamp, line_name, branch_name, rating_amps, rating_mva, flow_mva, loading_pct, status, voltage_kv
		FROM line_rating_history
		WHERE line_name = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, lineName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history for line %s: %w", lineName, err)
	}
	defer rows.Close()

	var entries []RatingHistoryEntry
	for rows.Next() {
		var e RatingHistoryEntry
		var status string
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.LineName,
			&e.BranchName,
			&e.RatingAmps,
			&e.RatingMVA,
			&e.FlowMVA,
			&e.LoadingPct,
			&status,
			&e.VoltageKV,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rating history row: %w", err)
		}
		e.Status = models.LineStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rating history rows: %w", err)
	}

	return entries, nil
}

// AlertRepository persists the audit trail of sent alerts.
type AlertRepository struct {
	pool DatabasePool
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(pool DatabasePool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

// SaveAlert appends one alert record. Satisfies services.AlertArchive.
func (r *AlertRepository) SaveAlert(ctx context.Context, record *models.AlertRecord) error {
	query := `
		INSERT INTO alert_history
			(id, line_name, branch_name, severity, loading_pct, rating_mva, flow_mva, voltage_kv, detected_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.LineName,
		record.BranchName,
		string(record.Severity),
		record.LoadingPct,
		record.RatingMVA,
		record.FlowMVA,
		record.VoltageKV,
		record.DetectedAt,
		record.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert for line %s: %w", record.LineName, err)
	}
	return nil
}

// RecentAlerts returns the newest alert records, newest first.
func (r *AlertRepository) RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	query := `
		SELECT id, line_name, branch_name, severity, loading_pct, rating_mva, flow_mva, voltage_kv, detected_at, sent_at
		FROM alert_history
		ORDER BY sent_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	defer rows.Close()

	var records []models.AlertRecord
	for rows.Next() {
		var rec models.AlertRecord
		var severity string
		if err := rows.Scan(
			&rec.ID,
			&rec.LineName,
			&rec.BranchName,
			&severity,
			&rec.LoadingPct,
			&rec.RatingMVA,
			&rec.FlowMVA,
			&rec.VoltageKV,
			&rec.DetectedAt,
			&rec.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert history row: %w", err)
		}
		rec.Severity = models.Severity(severity)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alert history rows: %w", err)
	}

	return records, nil
}

// LastAlertForLine returns the newest alert record for a line and severity,
// or nil when none exists.
func (r *AlertRepository) LastAlertForLine(ctx context.Context, lineName string, severity models.Severity) (*models.AlertRecord, error) {
	query := `
		SELECT id, line_name, branch_name, severity, loading_pct, rating_mva, flow_mva, voltage_kv, detected_at, sent_at
		FROM alert_history
		WHERE line_name = $1 AND severity = $2
		ORDER BY sent_at DESC
		LIMIT 1
	`

	var rec models.AlertRecord
	var sev string
	err := r.pool.QueryRow(ctx, query, lineName, string(severity)).Scan(
		&rec.ID,
		&rec.LineName,
		&rec.BranchName,
		&sev,
		&rec.LoadingPct,
		&rec.RatingMVA,
		&rec.FlowMVA,
		&rec.VoltageKV,
		&rec.DetectedAt,
		&rec.SentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last alert for line %s: %w", lineName, err)
	}

	rec.Severity = models.Severity(sev)
	return &rec, nil
}
