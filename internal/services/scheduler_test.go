package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linelink/linelink-go/internal/cache"
	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/weather"
)

type fakeGrid struct {
	lines      []models.LineSpec
	conductors mapLookup
}

func (g *fakeGrid) Lines() []models.LineSpec { return g.lines }

func (g *fakeGrid) Conductor(name string) (*models.ConductorSpec, bool) {
	return g.conductors.Conductor(name)
}

type fakeAmbient struct {
	reading *weather.AmbientReading
	err     error
}

func (f *fakeAmbient) Current(ctx context.Context) (*weather.AmbientReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reading, nil
}

type fakeSink struct {
	batches []*models.AlertBatch
	err     error
}

func (f *fakeSink) Dispatch(ctx context.Context, batch *models.AlertBatch) error {
	f.batches = append(f.batches, batch)
	return f.err
}

type fakeArchive struct {
	records []*models.AlertRecord
}

func (f *fakeArchive) SaveAlert(ctx context.Context, record *models.AlertRecord) error {
	f.records = append(f.records, record)
	return nil
}

type fakeRatings struct {
	snapshots []models.LineSnapshot
}

func (f *fakeRatings) SaveRating(ctx context.Context, snapshot *models.LineSnapshot, at time.Time) error {
	f.snapshots = append(f.snapshots, *snapshot)
	return nil
}

func schedulerFixture(t *testing.T, flowFactor float64) (*AlertScheduler, *fakeSink, *fakeArchive, *fakeRatings) {
	t.Helper()

	rating := orioleRatingMVA(t)
	grid := &fakeGrid{
		lines:      []models.LineSpec{testLine("L5", rating * flowFactor)},
		conductors: mapLookup{"336.4 ACSR 30/7 ORIOLE": oriole()},
	}
	ambient := &fakeAmbient{
		reading: &weather.AmbientReading{
			TemperatureC: 25,
			WindSpeedFtS: 6.56,
			Timestamp:    time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC),
		},
	}

	logger := logging.NewStandardLogger("error", "development")
	engine := NewAlertEngine(cache.NewMemoryCooldownStore(), 30*time.Minute, 3, logger)
	sink := &fakeSink{}
	archive := &fakeArchive{}
	ratings := &fakeRatings{}

	scheduler := NewAlertScheduler(testAggregator(t), engine, grid, ambient, sink, archive, ratings, SchedulerConfig{
		Interval:    time.Minute,
		Atmosphere:  models.AtmosphereClear,
		LatitudeDeg: 27,
		ElevationFt: 1000,
	}, logger)

	return scheduler, sink, archive, ratings
}

func TestRunCheck_DispatchesAndArchives(t *testing.T) {
	scheduler, sink, archive, ratings := schedulerFixture(t, 0.97) // CRITICAL loading

	batch, err := scheduler.RunCheck(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Email, 1)

	require.Len(t, sink.batches, 1)
	assert.Same(t, batch, sink.batches[0])

	require.Len(t, archive.records, 1)
	record := archive.records[0]
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "L5", record.LineName)
	assert.Equal(t, models.SeverityCritical, record.Severity)
	assert.InDelta(t, 97, record.LoadingPct, 0.5)

	require.Len(t, ratings.snapshots, 1)
	assert.Equal(t, "L5", ratings.snapshots[0].LineName)
}

func TestRunCheck_QuietGridDispatchesNothing(t *testing.T) {
	scheduler, sink, archive, ratings := schedulerFixture(t, 0.40)

	batch, err := scheduler.RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, batch.Empty())
	assert.Empty(t, sink.batches)
	assert.Empty(t, archive.records)

	// Rating history is written every run regardless of alerting.
	assert.Len(t, ratings.snapshots, 1)
}

func TestRunCheck_CooldownSuppressesSecondRun(t *testing.T) {
	scheduler, sink, _, _ := schedulerFixture(t, 0.97)

	_, err := scheduler.RunCheck(context.Background())
	require.NoError(t, err)
	batch, err := scheduler.RunCheck(context.Background())
	require.NoError(t, err)

	assert.True(t, batch.Empty())
	assert.Len(t, sink.batches, 1)
}

func TestRunCheck_AmbientFailurePropagates(t *testing.T) {
	scheduler, sink, _, _ := schedulerFixture(t, 0.97)
	scheduler.ambient = &fakeAmbient{err: assert.AnError}

	_, err := scheduler.RunCheck(context.Background())
	assert.Error(t, err)
	assert.Empty(t, sink.batches)
}

func TestRunCheck_DeliveryFailureStillArchives(t *testing.T) {
	scheduler, sink, archive, _ := schedulerFixture(t, 0.97)
	sink.err = assert.AnError

	batch, err := scheduler.RunCheck(context.Background())
	require.NoError(t, err, "cooldown is committed at selection time; delivery failure is logged")
	assert.False(t, batch.Empty())
	assert.Len(t, archive.records, 1)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler, _, _, _ := schedulerFixture(t, 0.40)

	scheduler.Start()
	scheduler.Stop()

	select {
	case <-scheduler.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler context not cancelled after Stop")
	}
}
