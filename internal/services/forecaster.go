package services

import (
	"context"
	"sync"
	"time"

	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/utils"
)

// ForecastSequencer runs the aggregator once per forecast hour and assembles
// the results in chronological order. Hours are independent and evaluated on
// a bounded worker pool; the hour index, not completion order, decides where
// a result lands.
type ForecastSequencer struct {
	aggregator *RatingAggregator
	workers    int
	logger     *logging.StandardLogger
}

// FailureScan configures the first-failure temperature sweep.
type FailureScan struct {
	StepC float64
	MinC  float64
	MaxC  float64
}

// NewForecastSequencer creates a sequencer running up to `workers` hourly
// evaluations concurrently.
func NewForecastSequencer(aggregator *RatingAggregator, workers int, logger *logging.StandardLogger) *ForecastSequencer {
	if workers <= 0 {
		workers = 1
	}
	return &ForecastSequencer{
		aggregator: aggregator,
		workers:    workers,
		logger:     logger,
	}
}

// Forecast evaluates every hourly ambient snapshot and returns one
// ForecastPoint per hour, ordered by hour offset. Cancelling the context
// discards partial results and returns the context error.
func (f *ForecastSequencer) Forecast(ctx context.Context, lines []models.LineSpec, conductors models.ConductorLookup, hourly []models.AmbientConditions, now time.Time) ([]models.ForecastPoint, error) {
	if len(hourly) == 0 {
		return nil, utils.NewValidationError("forecast requires at least one ambient snapshot")
	}

	points := make([]models.ForecastPoint, len(hourly))
	hours := make(chan int)

	workers := f.workers
	if workers > len(hourly) {
		workers = len(hourly)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hour := range hours {
				snapshots, health := f.aggregator.Aggregate(lines, conductors, hourly[hour], now)
				points[hour] = models.ForecastPoint{
					HourOffset: hour,
					Ambient:    hourly[hour],
					Health:     *health,
					Lines:      snapshots,
				}
			}
		}()
	}

	dispatch := func() error {
		defer close(hours)
		for hour := range hourly {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case hours <- hour:
			}
		}
		return nil
	}

	err := dispatch()
	wg.Wait()
	if err != nil {
		return nil, err
	}

	return points, nil
}

// PeakStressHour returns the hour offset whose health snapshot has the
// largest maximum loading. Exact ties go to the earlier hour.
func PeakStressHour(points []models.ForecastPoint) int {
	peak := 0
	for i := 1; i < len(points); i++ {
		if points[i].Health.MaxLoadingPct > points[peak].Health.MaxLoadingPct {
			peak = i
		}
	}
	return peak
}

// FirstFailureTemperature sweeps ambient temperature upward from scan.MinC in
// scan.StepC increments, holding every other parameter of `base` fixed, and
// reports the first temperature at which any line reaches CRITICAL or worse.
// When several lines cross at the same scanned temperature the
// lexicographically lowest name is reported. Returns ok=false when no line
// fails up to scan.MaxC.
func (f *ForecastSequencer) FirstFailureTemperature(lines []models.LineSpec, conductors models.ConductorLookup, base models.AmbientConditions, scan FailureScan, now time.Time) (tempC float64, lineName string, ok bool) {
	for temp := scan.MinC; temp <= scan.MaxC; temp += scan.StepC {
		ambient := base
		ambient.TemperatureC = temp

		snapshots, _ := f.aggregator.Aggregate(lines, conductors, ambient, now)

		failed := ""
		for i := range snapshots {
			s := &snapshots[i]
			if s.Failed() || !s.Status.AtLeastCritical() {
				continue
			}
			if failed == "" || s.LineName < failed {
				failed = s.LineName
			}
		}
		if failed != "" {
			return temp, failed, true
		}
	}
	return 0, "", false
}
