package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/weather"
)

// GridData is the static topology needed for a rating batch. Satisfied by
// *griddata.Store.
type GridData interface {
	Lines() []models.LineSpec
	Conductor(name string) (*models.ConductorSpec, bool)
}

// AmbientProvider supplies the current ambient reading. Satisfied by
// *weather.Service.
type AmbientProvider interface {
	Current(ctx context.Context) (*weather.AmbientReading, error)
}

// AlertSink delivers a batch to its recipients. Satisfied by the notify
// dispatchers.
type AlertSink interface {
	Dispatch(ctx context.Context, batch *models.AlertBatch) error
}

// AlertArchive persists alert records. Satisfied by the alert repository.
type AlertArchive interface {
	SaveAlert(ctx context.Context, record *models.AlertRecord) error
}

// RatingArchive persists rating snapshots. Satisfied by the rating
// repository; may be nil when history persistence is disabled.
type RatingArchive interface {
	SaveRating(ctx context.Context, snapshot *models.LineSnapshot, at time.Time) error
}

// SchedulerConfig configures the periodic alert check.
type SchedulerConfig struct {
	Interval    time.Duration
	Atmosphere  models.Atmosphere
	LatitudeDeg float64
	ElevationFt float64
}

// AlertScheduler is the timer collaborator that drives the alert engine at a
// fixed interval. The engine itself stays trigger-agnostic; a manual dispatch
// through the API calls the same RunCheck entry point.
type AlertScheduler struct {
	aggregator *RatingAggregator
	engine     *AlertEngine
	grid       GridData
	ambient    AmbientProvider
	sink       AlertSink
	archive    AlertArchive
	ratings    RatingArchive
	config     SchedulerConfig
	logger     *logging.StandardLogger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewAlertScheduler creates a scheduler wiring the rating, alerting, delivery
// and persistence collaborators together.
func NewAlertScheduler(aggregator *RatingAggregator, engine *AlertEngine, grid GridData, ambient AmbientProvider, sink AlertSink, archive AlertArchive, ratings RatingArchive, config SchedulerConfig, logger *logging.StandardLogger) *AlertScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &AlertScheduler{
		aggregator: aggregator,
		engine:     engine,
		grid:       grid,
		ambient:    ambient,
		sink:       sink,
		archive:    archive,
		ratings:    ratings,
		config:     config,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the periodic alert checks.
func (s *AlertScheduler) Start() {
	log := s.logger.WithComponent("alert_scheduler")
	log.Info("Starting alert scheduler", "interval", s.config.Interval.String())

	ticker := time.NewTicker(s.config.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunCheck(s.ctx); err != nil {
					log.Error("Scheduled alert check failed", "error", err.Error())
				}
			}
		}
	}()
}

// Stop stops the scheduler.
func (s *AlertScheduler) Stop() {
	s.logger.WithComponent("alert_scheduler").Info("Stopping alert scheduler")
	s.cancel()
}

// RunCheck performs one full evaluate-and-dispatch cycle: fetch ambient
// conditions, rate all lines, run cooldown selection, deliver the surviving
// batch, and archive each alert.
func (s *AlertScheduler) RunCheck(ctx context.Context) (*models.AlertBatch, error) {
	now := time.Now()

	reading, err := s.ambient.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ambient conditions: %w", err)
	}

	conditions := reading.ToAmbientConditions(s.config.Atmosphere, s.config.LatitudeDeg, s.config.ElevationFt)
	snapshots, _ := s.aggregator.Aggregate(s.grid.Lines(), gridLookup{s.grid}, conditions, now)

	if s.ratings != nil {
		for i := range snapshots {
			if snapshots[i].Failed() {
				continue
			}
			if err := s.ratings.SaveRating(ctx, &snapshots[i], now); err != nil {
				s.logger.WithLine(snapshots[i].LineName).Error("Failed to archive rating", "error", err.Error())
			}
		}
	}

	batch, err := s.engine.Evaluate(ctx, snapshots, now)
	if err != nil {
		return nil, err
	}
	if batch.Empty() {
		return batch, nil
	}

	if err := s.sink.Dispatch(ctx, batch); err != nil {
		// Cooldown state is already committed; log and carry on so the
		// archive still records what was selected.
		s.logger.WithComponent("alert_scheduler").Error("Alert delivery failed", "error", err.Error())
	}

	for i := range batch.Email {
		record := recordFromCandidate(&batch.Email[i], now)
		if err := s.archive.SaveAlert(ctx, record); err != nil {
			s.logger.WithLine(record.LineName).Error("Failed to archive alert", "error", err.Error())
		}
	}

	return batch, nil
}

// gridLookup adapts GridData to models.ConductorLookup.
type gridLookup struct {
	grid GridData
}

func (g gridLookup) Conductor(name string) (*models.ConductorSpec, bool) {
	return g.grid.Conductor(name)
}

func recordFromCandidate(candidate *models.AlertCandidate, sentAt time.Time) *models.AlertRecord {
	s := &candidate.Snapshot
	return &models.AlertRecord{
		ID:         uuid.New().String(),
		LineName:   s.LineName,
		BranchName: s.BranchName,
		Severity:   candidate.Severity,
		LoadingPct: s.LoadingPct,
		RatingMVA:  s.RatingMVA,
		FlowMVA:    s.FlowMVA,
		VoltageKV:  s.VoltageKV,
		DetectedAt: candidate.DetectedAt,
		SentAt:     sentAt,
	}
}
