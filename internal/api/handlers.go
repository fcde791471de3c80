// Package api exposes the rating, forecast and alert operations over HTTP.
// Handlers shape requests and responses only; all domain work happens in the
// services layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linelink/linelink-go/internal/config"
	"github.com/linelink/linelink-go/internal/database"
	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/services"
	"github.com/linelink/linelink-go/internal/utils"
	"github.com/linelink/linelink-go/internal/weather"
)

const forecastCacheKey = "forecast:response"

// Handler carries the collaborators behind the HTTP surface.
type Handler struct {
	grid       services.GridData
	weather    *weather.Service
	aggregator *services.RatingAggregator
	sequencer  *services.ForecastSequencer
	scheduler  *services.AlertScheduler
	alerts     *database.AlertRepository
	ratings    *database.RatingRepository
	redis      *database.RedisClient
	cfg        *config.Config
	logger     *logging.StandardLogger
}

// NewHandler wires the HTTP surface to its collaborators. The repositories
// and redis may be nil; the endpoints needing them degrade gracefully.
func NewHandler(grid services.GridData, weatherSvc *weather.Service, aggregator *services.RatingAggregator, sequencer *services.ForecastSequencer, scheduler *services.AlertScheduler, alerts *database.AlertRepository, ratings *database.RatingRepository, redisClient *database.RedisClient, cfg *config.Config, logger *logging.StandardLogger) *Handler {
	return &Handler{
		grid:       grid,
		weather:    weatherSvc,
		aggregator: aggregator,
		sequencer:  sequencer,
		scheduler:  scheduler,
		alerts:     alerts,
		ratings:    ratings,
		redis:      redisClient,
		cfg:        cfg,
		logger:     logger,
	}
}

// lineView is the JSON shape of one line snapshot. Unbounded loading (zero
// rating) is rendered as a null loading percentage with the unbounded flag
// set, since infinity is not representable in JSON.
type lineView struct {
	LineName   string   `json:"line_name"`
	BranchName string   `json:"branch_name"`
	FlowMVA    float64  `json:"flow_mva"`
	RatingAmps float64  `json:"rating_amps"`
	RatingMVA  float64  `json:"rating_mva"`
	LoadingPct *float64 `json:"loading_pct"`
	Unbounded  bool     `json:"unbounded,omitempty"`
	VoltageKV  float64  `json:"voltage_kv"`
	Status     string   `json:"status"`
	Error      string   `json:"error,omitempty"`
}

func toLineView(s *models.LineSnapshot) lineView {
	v := lineView{
		LineName:   s.LineName,
		BranchName: s.BranchName,
		FlowMVA:    s.FlowMVA,
		RatingAmps: s.RatingAmps,
		RatingMVA:  s.RatingMVA,
		VoltageKV:  s.VoltageKV,
		Status:     string(s.Status),
		Error:      s.Error,
	}
	if math.IsInf(s.LoadingPct, 1) {
		v.Unbounded = true
	} else if !s.Failed() {
		loading := s.LoadingPct
		v.LoadingPct = &loading
	}
	return v
}

func toLineViews(snapshots []models.LineSnapshot) []lineView {
	views := make([]lineView, len(snapshots))
	for i := range snapshots {
		views[i] = toLineView(&snapshots[i])
	}
	return views
}

type healthView struct {
	TotalLines       int      `json:"total_lines"`
	OKCount          int      `json:"ok"`
	WarningCount     int      `json:"warning"`
	CriticalCount    int      `json:"critical"`
	OverloadCount    int      `json:"overload"`
	FailedCount      int      `json:"failed"`
	AvgLoadingPct    *float64 `json:"avg_loading_pct"`
	MaxLoadingPct    *float64 `json:"max_loading_pct"`
	MostStressedLine string   `json:"most_stressed_line"`
}

func toHealthView(h *models.SystemHealthSnapshot) healthView {
	v := healthView{
		TotalLines:       h.TotalLines,
		OKCount:          h.OKCount,
		WarningCount:     h.WarningCount,
		CriticalCount:    h.CriticalCount,
		OverloadCount:    h.OverloadCount,
		FailedCount:      h.FailedCount,
		MostStressedLine: h.MostStressedLine,
	}
	if !math.IsInf(h.AvgLoadingPct, 1) {
		avg := h.AvgLoadingPct
		v.AvgLoadingPct = &avg
	}
	if !math.IsInf(h.MaxLoadingPct, 1) {
		peak := h.MaxLoadingPct
		v.MaxLoadingPct = &peak
	}
	return v
}

func (h *Handler) ambientFromReading(reading *weather.AmbientReading) models.AmbientConditions {
	return reading.ToAmbientConditions(
		models.Atmosphere(h.cfg.Grid.Atmosphere),
		h.cfg.Grid.LatitudeDeg,
		h.cfg.Grid.ElevationFt,
	)
}

func (h *Handler) renderError(c *gin.Context, err error) {
	var ve *utils.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
		return
	}
	var degraded *utils.ServiceDegradedError
	if errors.As(err, &degraded) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": degraded.Error()})
		return
	}
	if errors.Is(err, context.Canceled) {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
		return
	}

	h.logger.WithError(err).Error("Request failed", "component", "api", "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// getCurrentConditions returns the latest ambient reading and the system
// state it implies.
func (h *Handler) getCurrentConditions(c *gin.Context) {
	reading, err := h.weather.Current(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	ambient := h.ambientFromReading(reading)
	snapshots, health := h.aggregator.Aggregate(h.grid.Lines(), conductorLookup{h.grid}, ambient, time.Now())

	c.JSON(http.StatusOK, gin.H{
		"reading":       reading,
		"degraded":      reading.Degraded,
		"system_health": toHealthView(health),
		"lines":         toLineViews(snapshots),
	})
}

// scenarioRequest is a what-if ambient override. WindAngleDeg is a pointer so
// that an omitted field falls back to the perpendicular-wind assumption the
// live feed uses, rather than the zero value's parallel wind.
type scenarioRequest struct {
	TemperatureC float64  `json:"temperature_c"`
	WindSpeedFtS float64  `json:"wind_speed_ft_s"`
	WindAngleDeg *float64 `json:"wind_angle_deg"`
	HourOfDay    float64  `json:"hour_of_day"`
	Atmosphere   string   `json:"atmosphere"`
}

// postScenario rates the grid under caller-supplied ambient conditions.
func (h *Handler) postScenario(c *gin.Context) {
	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	atmosphere := models.Atmosphere(req.Atmosphere)
	if req.Atmosphere == "" {
		atmosphere = models.Atmosphere(h.cfg.Grid.Atmosphere)
	}

	windAngle := 90.0
	if req.WindAngleDeg != nil {
		windAngle = *req.WindAngleDeg
	}

	ambient := models.AmbientConditions{
		TemperatureC: req.TemperatureC,
		WindSpeedFtS: req.WindSpeedFtS,
		WindAngleDeg: windAngle,
		HourOfDay:    req.HourOfDay,
		Date:         time.Now().UTC(),
		Atmosphere:   atmosphere,
		LatitudeDeg:  h.cfg.Grid.LatitudeDeg,
		ElevationFt:  h.cfg.Grid.ElevationFt,
	}
	if err := ambient.Validate(); err != nil {
		h.renderError(c, err)
		return
	}

	snapshots, health := h.aggregator.Aggregate(h.grid.Lines(), conductorLookup{h.grid}, ambient, time.Now())

	c.JSON(http.StatusOK, gin.H{
		"ambient":       ambient,
		"system_health": toHealthView(health),
		"lines":         toLineViews(snapshots),
	})
}

type forecastPointView struct {
	Hour         int        `json:"hour"`
	TemperatureC float64    `json:"temperature_c"`
	WindSpeedFtS float64    `json:"wind_speed_ft_s"`
	Health       healthView `json:"system_health"`
}

type alertPreviewView struct {
	LineName   string   `json:"line_name"`
	BranchName string   `json:"branch_name"`
	Severity   string   `json:"severity"`
	LoadingPct *float64 `json:"loading_pct"`
}

// getForecast runs the 24-hour forecast and derived insights. Responses are
// cached in Redis for the configured TTL since a full run rates every line
// 24 times.
func (h *Handler) getForecast(c *gin.Context) {
	if cached, ok := h.cachedForecast(c.Request.Context()); ok {
		c.Data(http.StatusOK, "application/json", cached)
		return
	}

	horizon := h.cfg.Forecast.HorizonHours
	readings, err := h.weather.Forecast(c.Request.Context(), horizon)
	if err != nil {
		h.renderError(c, err)
		return
	}

	hourly := make([]models.AmbientConditions, len(readings))
	degraded := false
	for i, r := range readings {
		hourly[i] = h.ambientFromReading(&r)
		degraded = degraded || r.Degraded
	}

	now := time.Now()
	points, err := h.sequencer.Forecast(c.Request.Context(), h.grid.Lines(), conductorLookup{h.grid}, hourly, now)
	if err != nil {
		h.renderError(c, err)
		return
	}

	peak := services.PeakStressHour(points)

	scan := services.FailureScan{
		StepC: h.cfg.Forecast.FailureScanStepC,
		MinC:  h.cfg.Forecast.FailureScanMinC,
		MaxC:  h.cfg.Forecast.FailureScanMaxC,
	}
	failTemp, failLine, failFound := h.sequencer.FirstFailureTemperature(h.grid.Lines(), conductorLookup{h.grid}, hourly[0], scan, now)

	pointViews := make([]forecastPointView, len(points))
	for i := range points {
		pointViews[i] = forecastPointView{
			Hour:         points[i].HourOffset,
			TemperatureC: points[i].Ambient.TemperatureC,
			WindSpeedFtS: points[i].Ambient.WindSpeedFtS,
			Health:       toHealthView(&points[i].Health),
		}
	}

	var preview []alertPreviewView
	for i := range points[peak].Lines {
		s := &points[peak].Lines[i]
		if s.Failed() || !s.Status.AtLeastCritical() {
			continue
		}
		severity, _ := models.SeverityForStatus(s.Status)
		view := toLineView(s)
		preview = append(preview, alertPreviewView{
			LineName:   s.LineName,
			BranchName: s.BranchName,
			Severity:   string(severity),
			LoadingPct: view.LoadingPct,
		})
	}

	response := gin.H{
		"generated_at":     now.UTC(),
		"degraded":         degraded,
		"points":           pointViews,
		"peak_stress_hour": peak,
		"alert_preview":    preview,
	}
	if failFound {
		response["first_failure"] = gin.H{"temperature_c": failTemp, "line_name": failLine}
	} else {
		response["first_failure"] = nil
	}

	h.cacheForecast(c.Request.Context(), response, degraded)
	c.JSON(http.StatusOK, response)
}

func (h *Handler) cachedForecast(ctx context.Context) ([]byte, bool) {
	if h.redis == nil {
		return nil, false
	}

	start := time.Now()
	payload, err := h.redis.Get(ctx, forecastCacheKey)
	hit := err == nil
	h.logger.LogCacheOperation("get", forecastCacheKey, hit, time.Since(start).Milliseconds())

	if !hit {
		return nil, false
	}
	return []byte(payload), true
}

// cacheForecast stores the rendered response. Degraded responses are not
// cached: the next request should retry the upstream.
func (h *Handler) cacheForecast(ctx context.Context, response gin.H, degraded bool) {
	if h.redis == nil || degraded {
		return
	}

	ttl, err := time.ParseDuration(h.cfg.Forecast.ResponseCacheTTL)
	if err != nil || ttl <= 0 {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, forecastCacheKey, payload, ttl); err != nil {
		h.logger.WithComponent("api").Warn("Failed to cache forecast response", "error", err.Error())
	}
}

// getLine returns the current snapshot and the 24-hour outlook for one line.
func (h *Handler) getLine(c *gin.Context) {
	name := c.Param("name")

	var line *models.LineSpec
	for _, l := range h.grid.Lines() {
		if l.Name == name {
			match := l
			line = &match
			break
		}
	}
	if line == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown line " + name})
		return
	}

	reading, err := h.weather.Current(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	now := time.Now()
	lines := []models.LineSpec{*line}
	snapshots, _ := h.aggregator.Aggregate(lines, conductorLookup{h.grid}, h.ambientFromReading(reading), now)

	readings, err := h.weather.Forecast(c.Request.Context(), h.cfg.Forecast.HorizonHours)
	if err != nil {
		h.renderError(c, err)
		return
	}
	hourly := make([]models.AmbientConditions, len(readings))
	for i, r := range readings {
		hourly[i] = h.ambientFromReading(&r)
	}
	points, err := h.sequencer.Forecast(c.Request.Context(), lines, conductorLookup{h.grid}, hourly, now)
	if err != nil {
		h.renderError(c, err)
		return
	}

	type hourView struct {
		Hour       int      `json:"hour"`
		LoadingPct *float64 `json:"loading_pct"`
		RatingMVA  float64  `json:"rating_mva"`
		Status     string   `json:"status"`
	}
	outlook := make([]hourView, len(points))
	for i := range points {
		s := &points[i].Lines[0]
		view := toLineView(s)
		outlook[i] = hourView{
			Hour:       points[i].HourOffset,
			LoadingPct: view.LoadingPct,
			RatingMVA:  s.RatingMVA,
			Status:     string(s.Status),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"line":     toLineView(&snapshots[0]),
		"degraded": reading.Degraded,
		"outlook":  outlook,
	})
}

// postDispatch runs one manual evaluate-and-dispatch cycle, sharing the
// scheduler's cooldown state so manual and scheduled triggers never
// double-send.
func (h *Handler) postDispatch(c *gin.Context) {
	batch, err := h.scheduler.RunCheck(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at": batch.GeneratedAt,
		"sms_count":    len(batch.SMS),
		"email_count":  len(batch.Email),
		"dispatched":   !batch.Empty(),
	})
}

// getLineHistory lists the newest persisted ratings for one line.
func (h *Handler) getLineHistory(c *gin.Context) {
	if h.ratings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rating history not configured"})
		return
	}

	name := c.Param("name")
	entries, err := h.ratings.RecentRatings(c.Request.Context(), name, 100)
	if err != nil {
		h.renderError(c, err)
		return
	}

	// Same null-for-unbounded treatment as the live views.
	type entryView struct {
		database.RatingHistoryEntry
		LoadingPct *float64 `json:"loading_pct"`
	}
	views := make([]entryView, len(entries))
	for i := range entries {
		views[i] = entryView{RatingHistoryEntry: entries[i]}
		if !math.IsInf(entries[i].LoadingPct, 1) {
			loading := entries[i].LoadingPct
			views[i].LoadingPct = &loading
		}
	}

	c.JSON(http.StatusOK, gin.H{"line_name": name, "history": views})
}

// getRecentAlerts lists the newest archived alerts.
func (h *Handler) getRecentAlerts(c *gin.Context) {
	if h.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert history not configured"})
		return
	}

	records, err := h.alerts.RecentAlerts(c.Request.Context(), 50)
	if err != nil {
		h.renderError(c, err)
		return
	}

	type recordView struct {
		models.AlertRecord
		LoadingPct *float64 `json:"loading_pct"`
	}
	views := make([]recordView, len(records))
	for i := range records {
		views[i] = recordView{AlertRecord: records[i]}
		if !math.IsInf(records[i].LoadingPct, 1) {
			loading := records[i].LoadingPct
			views[i].LoadingPct = &loading
		}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": views})
}

// conductorLookup adapts services.GridData to models.ConductorLookup.
type conductorLookup struct {
	grid services.GridData
}

func (l conductorLookup) Conductor(name string) (*models.ConductorSpec, bool) {
	return l.grid.Conductor(name)
}
