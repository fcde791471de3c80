package services

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/metrics"
	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/thermal"
	"github.com/linelink/linelink-go/internal/utils"
)

// RatingAggregator rates every line against one ambient snapshot and rolls
// the results up into a system health summary. A single bad line never aborts
// the batch: its snapshot carries the error and it is excluded from the
// statistics.
type RatingAggregator struct {
	thresholds models.StatusThresholds
	logger     *logging.StandardLogger
	metrics    *metrics.MetricsCollector
}

// NewRatingAggregator creates an aggregator with the given status thresholds.
func NewRatingAggregator(thresholds models.StatusThresholds, logger *logging.StandardLogger, collector *metrics.MetricsCollector) *RatingAggregator {
	return &RatingAggregator{
		thresholds: thresholds,
		logger:     logger,
		metrics:    collector,
	}
}

// Thresholds returns the configured status thresholds.
func (a *RatingAggregator) Thresholds() models.StatusThresholds {
	return a.thresholds
}

// Aggregate rates all lines under one ambient snapshot. Snapshots are
// returned sorted by descending loading, ties broken by ascending line name;
// failed lines sort last.
func (a *RatingAggregator) Aggregate(lines []models.LineSpec, conductors models.ConductorLookup, ambient models.AmbientConditions, now time.Time) ([]models.LineSnapshot, *models.SystemHealthSnapshot) {
	start := time.Now()

	snapshots := make([]models.LineSnapshot, 0, len(lines))
	for i := range lines {
		snapshots = append(snapshots, a.rateLine(&lines[i], conductors, ambient, now))
	}

	sort.Slice(snapshots, func(i, j int) bool {
		si, sj := &snapshots[i], &snapshots[j]
		if si.Failed() != sj.Failed() {
			return sj.Failed()
		}
		if si.LoadingPct != sj.LoadingPct {
			return si.LoadingPct > sj.LoadingPct
		}
		return si.LineName < sj.LineName
	})

	health := a.summarize(snapshots, now)

	if a.metrics != nil {
		a.metrics.RecordAggregationMetrics(health.TotalLines, health.FailedCount, health.MaxLoadingPct, time.Since(start))
	}

	return snapshots, health
}

// rateLine rates a single line. Errors are captured on the snapshot instead
// of propagating, so one line cannot take down the batch.
func (a *RatingAggregator) rateLine(line *models.LineSpec, conductors models.ConductorLookup, ambient models.AmbientConditions, now time.Time) models.LineSnapshot {
	snapshot := models.LineSnapshot{
		LineName:   line.Name,
		BranchName: line.BranchName,
		FlowMVA:    line.NominalFlowMVA,
		VoltageKV:  line.VoltageKV,
	}

	conductor, ok := conductors.Conductor(line.Conductor)
	if !ok {
		err := utils.NewComputationError(line.Name, "unknown conductor "+line.Conductor)
		a.logger.WithLine(line.Name).Warn("Excluding line from aggregation", "error", err.Error())
		snapshot.Error = err.Error()
		return snapshot
	}

	result, err := thermal.RatingFor(line, conductor, ambient, now)
	if err != nil {
		var ve *utils.ValidationError
		if !errors.As(err, &ve) {
			var ce *utils.ComputationError
			if !errors.As(err, &ce) {
				err = utils.NewComputationError(line.Name, err.Error())
			}
		}
		a.logger.WithLine(line.Name).Warn("Excluding line from aggregation", "error", err.Error())
		snapshot.Error = err.Error()
		return snapshot
	}

	snapshot.RatingAmps = result.RatingAmps
	snapshot.RatingMVA = result.RatingMVA

	// A zero rating means the conductor is over its limit even unloaded;
	// loading is unbounded and the status is forced to OVERLOAD.
	if result.RatingMVA == 0 {
		snapshot.LoadingPct = math.Inf(1)
		snapshot.Status = models.StatusOverload
		return snapshot
	}

	snapshot.LoadingPct = line.NominalFlowMVA / result.RatingMVA * 100
	snapshot.Status = a.thresholds.Classify(snapshot.LoadingPct)
	return snapshot
}

// summarize rolls snapshots up into a SystemHealthSnapshot. Failed lines are
// counted but excluded from the loading statistics.
func (a *RatingAggregator) summarize(snapshots []models.LineSnapshot, now time.Time) *models.SystemHealthSnapshot {
	health := &models.SystemHealthSnapshot{
		TotalLines: len(snapshots),
		Timestamp:  now,
	}

	var loadingSum float64
	var rated int
	for i := range snapshots {
		s := &snapshots[i]
		if s.Failed() {
			health.FailedCount++
			continue
		}

		switch s.Status {
		case models.StatusOK:
			health.OKCount++
		case models.StatusWarning:
			health.WarningCount++
		case models.StatusCritical:
			health.CriticalCount++
		case models.StatusOverload:
			health.OverloadCount++
		}

		loadingSum += s.LoadingPct
		rated++
		if s.LoadingPct > health.MaxLoadingPct || health.MostStressedLine == "" {
			health.MaxLoadingPct = s.LoadingPct
			health.MostStressedLine = s.LineName
		} else if s.LoadingPct == health.MaxLoadingPct && s.LineName < health.MostStressedLine {
			health.MostStressedLine = s.LineName
		}
	}

	if rated > 0 {
		health.AvgLoadingPct = loadingSum / float64(rated)
	}
	return health
}
