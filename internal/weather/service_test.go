package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linelink/linelink-go/internal/utils"
)

type fakeSource struct {
	current    *AmbientReading
	forecast   []AmbientReading
	err        error
	currCalls  int
	fcastCalls int
}

func (f *fakeSource) CurrentConditions(ctx context.Context) (*AmbientReading, error) {
	f.currCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.current, nil
}

func (f *fakeSource) HourlyForecast(ctx context.Context, hours int) ([]AmbientReading, error) {
	f.fcastCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.forecast, nil
}

func setupService(t *testing.T, source Source) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewService(source, client, time.Hour), mr
}

func liveReading() *AmbientReading {
	return &AmbientReading{
		TemperatureC: 27.5,
		WindSpeedFtS: 9.84,
		Description:  "scattered clouds",
		Timestamp:    time.Date(2025, 6, 12, 14, 0, 0, 0, time.UTC),
	}
}

func TestService_Current_LiveReadingRefreshesCache(t *testing.T) {
	source := &fakeSource{current: liveReading()}
	svc, mr := setupService(t, source)

	reading, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 27.5, reading.TemperatureC)
	assert.False(t, reading.Degraded)
	assert.True(t, mr.Exists(lastReadingKey))
}

func TestService_Current_FallsBackToCachedReading(t *testing.T) {
	source := &fakeSource{current: liveReading()}
	svc, _ := setupService(t, source)

	// Prime the cache with a live reading, then take the upstream down.
	_, err := svc.Current(context.Background())
	require.NoError(t, err)
	source.err = utils.NewUpstreamUnavailableError("openweathermap", errors.New("timeout"))

	reading, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, reading.Degraded)
	assert.Equal(t, 27.5, reading.TemperatureC)
}

func TestService_Current_NoCacheIsServiceDegraded(t *testing.T) {
	source := &fakeSource{err: utils.NewUpstreamUnavailableError("openweathermap", errors.New("timeout"))}
	svc, _ := setupService(t, source)

	_, err := svc.Current(context.Background())
	require.Error(t, err)
	var degraded *utils.ServiceDegradedError
	assert.True(t, errors.As(err, &degraded))
}

func TestService_Forecast_PassesThroughLiveForecast(t *testing.T) {
	forecast := make([]AmbientReading, 24)
	for i := range forecast {
		forecast[i] = AmbientReading{TemperatureC: 25, HourOffset: i}
	}
	source := &fakeSource{forecast: forecast}
	svc, _ := setupService(t, source)

	readings, err := svc.Forecast(context.Background(), 24)
	require.NoError(t, err)
	assert.Len(t, readings, 24)
	assert.False(t, readings[0].Degraded)
}

func TestService_Forecast_HoldsCachedReadingFlat(t *testing.T) {
	source := &fakeSource{current: liveReading()}
	svc, _ := setupService(t, source)

	_, err := svc.Current(context.Background())
	require.NoError(t, err)
	source.err = utils.NewUpstreamUnavailableError("openweathermap", errors.New("timeout"))

	readings, err := svc.Forecast(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, readings, 24)

	for i, r := range readings {
		assert.True(t, r.Degraded)
		assert.Equal(t, i, r.HourOffset)
		assert.Equal(t, 27.5, r.TemperatureC)
		assert.Equal(t, liveReading().Timestamp.Add(time.Duration(i)*time.Hour), r.Timestamp)
	}
}

func TestService_Forecast_NoCacheIsServiceDegraded(t *testing.T) {
	source := &fakeSource{err: utils.NewUpstreamUnavailableError("openweathermap", errors.New("timeout"))}
	svc, _ := setupService(t, source)

	_, err := svc.Forecast(context.Background(), 24)
	require.Error(t, err)
	var degraded *utils.ServiceDegradedError
	assert.True(t, errors.As(err, &degraded))
}

func TestService_NonUpstreamErrorsPassThrough(t *testing.T) {
	source := &fakeSource{err: errors.New("programming error")}
	svc, _ := setupService(t, source)

	_, err := svc.Current(context.Background())
	require.Error(t, err)
	var degraded *utils.ServiceDegradedError
	assert.False(t, errors.As(err, &degraded), "unexpected errors are not masked as degradation")
}
