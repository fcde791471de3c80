package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linelink/linelink-go/internal/cache"
	"github.com/linelink/linelink-go/internal/config"
	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/services"
	"github.com/linelink/linelink-go/internal/thermal"
	"github.com/linelink/linelink-go/internal/utils"
	"github.com/linelink/linelink-go/internal/weather"
)

type fakeGrid struct {
	lines      []models.LineSpec
	conductors map[string]models.ConductorSpec
}

func (g *fakeGrid) Lines() []models.LineSpec { return g.lines }

func (g *fakeGrid) Conductor(name string) (*models.ConductorSpec, bool) {
	c, ok := g.conductors[name]
	if !ok {
		return nil, false
	}
	return &c, true
}

type fakeWeatherSource struct {
	reading weather.AmbientReading
	err     error
}

func (f *fakeWeatherSource) CurrentConditions(ctx context.Context) (*weather.AmbientReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := f.reading
	return &r, nil
}

func (f *fakeWeatherSource) HourlyForecast(ctx context.Context, hours int) ([]weather.AmbientReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	readings := make([]weather.AmbientReading, hours)
	for i := range readings {
		r := f.reading
		r.Timestamp = f.reading.Timestamp.Add(time.Duration(i) * time.Hour)
		r.HourOffset = i
		readings[i] = r
	}
	return readings, nil
}

type fakeSink struct {
	batches []*models.AlertBatch
}

func (f *fakeSink) Dispatch(ctx context.Context, batch *models.AlertBatch) error {
	f.batches = append(f.batches, batch)
	return nil
}

type fakeArchive struct {
	records []*models.AlertRecord
}

func (f *fakeArchive) SaveAlert(ctx context.Context, record *models.AlertRecord) error {
	f.records = append(f.records, record)
	return nil
}

func orioleSpec() models.ConductorSpec {
	return models.ConductorSpec{
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

func testReading() weather.AmbientReading {
	return weather.AmbientReading{
		TemperatureC:     25,
		WindSpeedFtS:     6.56,
		WindDirectionDeg: 180,
		Description:      "clear sky",
		Timestamp:        time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		LogLevel:    "error",
		Grid: config.GridConfig{
			Atmosphere:  "Clear",
			LatitudeDeg: 27,
			ElevationFt: 1000,
		},
		Thresholds: config.ThresholdsConfig{WarningPct: 80, CriticalPct: 95, OverloadPct: 100},
		Alerts:     config.AlertsConfig{CooldownMinutes: 30, SMSTopN: 2, IntervalMinutes: 5},
		Forecast: config.ForecastConfig{
			HorizonHours:     6,
			Workers:          2,
			FailureScanStepC: 1,
			FailureScanMinC:  20,
			FailureScanMaxC:  50,
			ResponseCacheTTL: "30m",
		},
	}
}

// ratedMVA is the ORIOLE rating at the fixture reading, so tests can express
// line flows as exact loading fractions.
func ratedMVA(t *testing.T) float64 {
	t.Helper()
	reading := testReading()
	ambient := reading.ToAmbientConditions(models.AtmosphereClear, 27, 1000)
	c := orioleSpec()
	amps, err := thermal.Rate(&c, ambient, 75)
	require.NoError(t, err)
	return thermal.AmpsToMVA(amps, 138)
}

type apiFixture struct {
	router  *gin.Engine
	source  *fakeWeatherSource
	sink    *fakeSink
	archive *fakeArchive
}

func setupAPI(t *testing.T, flowFactor float64) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewStandardLogger("error", "test")
	cfg := testConfig()

	grid := &fakeGrid{
		lines: []models.LineSpec{{
			Name:              "L0",
			BranchName:        "ALOHA138 TO HONOLULU138",
			Bus0:              "ALOHA138",
			Bus1:              "HONOLULU138",
			Conductor:         "336.4 ACSR 30/7 ORIOLE",
			MaxOperatingTempC: 75,
			NominalFlowMVA:    ratedMVA(t) * flowFactor,
			VoltageKV:         138,
		}},
		conductors: map[string]models.ConductorSpec{orioleSpec().Name: orioleSpec()},
	}

	source := &fakeWeatherSource{reading: testReading()}
	weatherSvc := weather.NewService(source, nil, 0)

	aggregator := services.NewRatingAggregator(models.DefaultThresholds(), logger, nil)
	sequencer := services.NewForecastSequencer(aggregator, cfg.Forecast.Workers, logger)
	engine := services.NewAlertEngine(cache.NewMemoryCooldownStore(), 30*time.Minute, cfg.Alerts.SMSTopN, logger)

	sink := &fakeSink{}
	archive := &fakeArchive{}
	scheduler := services.NewAlertScheduler(aggregator, engine, grid, weatherSvc, sink, archive, nil, services.SchedulerConfig{
		Interval:    time.Minute,
		Atmosphere:  models.AtmosphereClear,
		LatitudeDeg: cfg.Grid.LatitudeDeg,
		ElevationFt: cfg.Grid.ElevationFt,
	}, logger)

	handler := NewHandler(grid, weatherSvc, aggregator, sequencer, scheduler, nil, nil, nil, cfg, logger)

	router := gin.New()
	SetupRoutes(router, nil, nil, handler)

	return &apiFixture{router: router, source: source, sink: sink, archive: archive}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestGetCurrentConditions(t *testing.T) {
	f := setupAPI(t, 0.5)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/conditions/current", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, false, body["degraded"])

	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, "L0", line["line_name"])
	assert.Equal(t, string(models.StatusOK), line["status"])
	assert.InDelta(t, 50, line["loading_pct"].(float64), 0.5)

	health := body["system_health"].(map[string]any)
	assert.Equal(t, float64(1), health["total_lines"])
	assert.Equal(t, float64(1), health["ok"])
}

func TestGetCurrentConditions_UpstreamDownNoCache(t *testing.T) {
	f := setupAPI(t, 0.5)
	f.source.err = utils.NewUpstreamUnavailableError("openweathermap", assert.AnError)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/conditions/current", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body["error"], "weather upstream unavailable")
}

func TestPostScenario(t *testing.T) {
	f := setupAPI(t, 0.5)

	payload := []byte(`{"temperature_c": 25, "wind_speed_ft_s": 6.56, "wind_angle_deg": 90, "hour_of_day": 12}`)
	w, body := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", payload)
	require.Equal(t, http.StatusOK, w.Code)

	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.InDelta(t, 50, line["loading_pct"].(float64), 0.5)
}

func TestPostScenario_HotterMeansHigherLoading(t *testing.T) {
	f := setupAPI(t, 0.5)

	cool := []byte(`{"temperature_c": 20, "wind_speed_ft_s": 6.56, "wind_angle_deg": 90, "hour_of_day": 12}`)
	hot := []byte(`{"temperature_c": 45, "wind_speed_ft_s": 6.56, "wind_angle_deg": 90, "hour_of_day": 12}`)

	_, coolBody := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", cool)
	_, hotBody := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", hot)

	coolLoading := coolBody["lines"].([]any)[0].(map[string]any)["loading_pct"].(float64)
	hotLoading := hotBody["lines"].([]any)[0].(map[string]any)["loading_pct"].(float64)
	assert.Greater(t, hotLoading, coolLoading)
}

func TestPostScenario_UnboundedLoading(t *testing.T) {
	f := setupAPI(t, 0.5)

	// Ambient above the 75°C operating limit with no wind leaves no thermal
	// headroom at all, so loading is unbounded rather than a number.
	payload := []byte(`{"temperature_c": 80, "wind_speed_ft_s": 0, "wind_angle_deg": 90, "hour_of_day": 0}`)
	w, body := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", payload)
	require.Equal(t, http.StatusOK, w.Code)

	line := body["lines"].([]any)[0].(map[string]any)
	assert.Nil(t, line["loading_pct"])
	assert.Equal(t, true, line["unbounded"])
	assert.Equal(t, string(models.StatusOverload), line["status"])
}

func TestPostScenario_OmittedWindAngleDefaultsToPerpendicular(t *testing.T) {
	f := setupAPI(t, 0.5)

	omitted := []byte(`{"temperature_c": 25, "wind_speed_ft_s": 6.56, "hour_of_day": 12}`)
	explicit := []byte(`{"temperature_c": 25, "wind_speed_ft_s": 6.56, "wind_angle_deg": 90, "hour_of_day": 12}`)

	w, omittedBody := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", omitted)
	require.Equal(t, http.StatusOK, w.Code)
	_, explicitBody := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", explicit)

	omittedLoading := omittedBody["lines"].([]any)[0].(map[string]any)["loading_pct"].(float64)
	explicitLoading := explicitBody["lines"].([]any)[0].(map[string]any)["loading_pct"].(float64)
	assert.Equal(t, explicitLoading, omittedLoading)
}

func TestPostScenario_ParallelWindLowersRating(t *testing.T) {
	f := setupAPI(t, 0.5)

	perpendicular := []byte(`{"temperature_c": 25, "wind_speed_ft_s": 6.56, "wind_angle_deg": 90, "hour_of_day": 12}`)
	parallel := []byte(`{"temperature_c": 25, "wind_speed_ft_s": 6.56, "wind_angle_deg": 0, "hour_of_day": 12}`)

	_, perpBody := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", perpendicular)
	_, parBody := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", parallel)

	perpLoading := perpBody["lines"].([]any)[0].(map[string]any)["loading_pct"].(float64)
	parLoading := parBody["lines"].([]any)[0].(map[string]any)["loading_pct"].(float64)
	assert.Greater(t, parLoading, perpLoading)
}

func TestPostScenario_RejectsInvalidBody(t *testing.T) {
	f := setupAPI(t, 0.5)

	w, _ := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostScenario_RejectsInvalidAmbient(t *testing.T) {
	f := setupAPI(t, 0.5)

	payload := []byte(`{"temperature_c": 25, "wind_speed_ft_s": -3, "wind_angle_deg": 90, "hour_of_day": 12}`)
	w, body := doJSON(t, f.router, http.MethodPost, "/api/v1/conditions/scenario", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, body["error"])
}

func TestGetForecast(t *testing.T) {
	f := setupAPI(t, 0.9)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/forecast", nil)
	require.Equal(t, http.StatusOK, w.Code)

	points := body["points"].([]any)
	require.Len(t, points, 6)
	for i, p := range points {
		assert.Equal(t, float64(i), p.(map[string]any)["hour"])
	}

	peak := body["peak_stress_hour"].(float64)
	assert.GreaterOrEqual(t, peak, float64(0))
	assert.Less(t, peak, float64(6))

	// A line at 90% loading under the base reading must cross 95% somewhere
	// in the 20..50°C sweep.
	failure := body["first_failure"].(map[string]any)
	assert.Equal(t, "L0", failure["line_name"])
	assert.Greater(t, failure["temperature_c"].(float64), 25.0)
	assert.LessOrEqual(t, failure["temperature_c"].(float64), 50.0)
}

func TestGetForecast_QuietGridHasNoFailureOrPreview(t *testing.T) {
	f := setupAPI(t, 0.05)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/forecast", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Nil(t, body["first_failure"])
	assert.Nil(t, body["alert_preview"])
}

func TestGetLine(t *testing.T) {
	f := setupAPI(t, 0.5)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/lines/L0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	line := body["line"].(map[string]any)
	assert.Equal(t, "L0", line["line_name"])
	assert.Equal(t, "ALOHA138 TO HONOLULU138", line["branch_name"])

	outlook := body["outlook"].([]any)
	require.Len(t, outlook, 6)
	first := outlook[0].(map[string]any)
	assert.Equal(t, float64(0), first["hour"])
	assert.Greater(t, first["rating_mva"].(float64), 0.0)
}

func TestGetLine_UnknownName(t *testing.T) {
	f := setupAPI(t, 0.5)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/lines/L99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "L99")
}

func TestPostDispatch(t *testing.T) {
	f := setupAPI(t, 1.2)

	w, body := doJSON(t, f.router, http.MethodPost, "/api/v1/alerts/dispatch", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, true, body["dispatched"])
	assert.Equal(t, float64(1), body["email_count"])

	require.Len(t, f.sink.batches, 1)
	require.Len(t, f.archive.records, 1)
	assert.Equal(t, "L0", f.archive.records[0].LineName)
	assert.Equal(t, models.SeverityOverload, f.archive.records[0].Severity)
}

func TestPostDispatch_SecondCallSuppressedByCooldown(t *testing.T) {
	f := setupAPI(t, 1.2)

	w, _ := doJSON(t, f.router, http.MethodPost, "/api/v1/alerts/dispatch", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, f.router, http.MethodPost, "/api/v1/alerts/dispatch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["dispatched"])
	assert.Len(t, f.sink.batches, 1)
}

func TestGetLineHistory_NotConfigured(t *testing.T) {
	f := setupAPI(t, 0.5)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/lines/L0/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body["error"], "not configured")
}

func TestGetRecentAlerts_NotConfigured(t *testing.T) {
	f := setupAPI(t, 0.5)

	w, body := doJSON(t, f.router, http.MethodGet, "/api/v1/alerts/recent", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body["error"], "not configured")
}
