package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/models"
)

// CooldownStore tracks the last-sent time per (line, severity) key. Acquire
// must be atomic per key: it reports whether an alert may be sent at `now`
// and, when it may, records `now` in the same critical section.
type CooldownStore interface {
	Acquire(ctx context.Context, line string, severity models.Severity, now time.Time, window time.Duration) (bool, error)
}

// AlertEngine turns stressed lines into a prioritized, deduplicated
// notification batch. It decides content and recipients only; delivery is a
// collaborator's job. Cooldown state is committed at selection time, so a
// later delivery failure does not reopen the window.
type AlertEngine struct {
	store   CooldownStore
	window  time.Duration
	smsTopN int
	logger  *logging.StandardLogger
}

// NewAlertEngine creates an alert engine over the given cooldown store.
func NewAlertEngine(store CooldownStore, window time.Duration, smsTopN int, logger *logging.StandardLogger) *AlertEngine {
	return &AlertEngine{
		store:   store,
		window:  window,
		smsTopN: smsTopN,
		logger:  logger,
	}
}

// Evaluate selects every CRITICAL or OVERLOAD line, orders candidates by
// descending loading with ties broken by ascending line name, suppresses
// those still cooling down, and returns the surviving batch. The SMS list is
// the first smsTopN survivors; the email list is all of them.
func (e *AlertEngine) Evaluate(ctx context.Context, snapshots []models.LineSnapshot, now time.Time) (*models.AlertBatch, error) {
	candidates := make([]models.LineSnapshot, 0, len(snapshots))
	for i := range snapshots {
		s := snapshots[i]
		if s.Failed() {
			continue
		}
		if _, ok := models.SeverityForStatus(s.Status); ok {
			candidates = append(candidates, s)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].LoadingPct != candidates[j].LoadingPct {
			return candidates[i].LoadingPct > candidates[j].LoadingPct
		}
		return candidates[i].LineName < candidates[j].LineName
	})

	batch := &models.AlertBatch{GeneratedAt: now}
	for _, s := range candidates {
		severity, _ := models.SeverityForStatus(s.Status)

		granted, err := e.store.Acquire(ctx, s.LineName, severity, now, e.window)
		if err != nil {
			return nil, fmt.Errorf("cooldown check failed for line %s: %w", s.LineName, err)
		}
		if !granted {
			e.logger.WithLine(s.LineName).Debug("Alert suppressed by cooldown", "severity", string(severity))
			continue
		}

		batch.Email = append(batch.Email, models.AlertCandidate{
			Snapshot:   s,
			Severity:   severity,
			DetectedAt: now,
		})
	}

	n := e.smsTopN
	if n > len(batch.Email) {
		n = len(batch.Email)
	}
	batch.SMS = batch.Email[:n]

	if !batch.Empty() {
		e.logger.WithComponent("alert_engine").Info("Alert batch generated",
			"email_candidates", len(batch.Email),
			"sms_candidates", len(batch.SMS),
		)
	}
	return batch, nil
}
