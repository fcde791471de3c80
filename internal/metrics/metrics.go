// Package metrics provides collection and reporting functionality for
// application metrics such as rating batches, forecast runs, and alert
// dispatch, emitted through the structured logger.
package metrics

import (
	"strconv"
	"time"

	"github.com/linelink/linelink-go/internal/logging"
)

// MetricType represents the type of metric being recorded.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeTiming  MetricType = "timing"
)

// Metric represents a standardized metric structure.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// MetricsCollector provides standardized metrics collection.
type MetricsCollector struct {
	logger      *logging.StandardLogger
	serviceName string
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(logger *logging.StandardLogger, serviceName string) *MetricsCollector {
	return &MetricsCollector{
		logger:      logger,
		serviceName: serviceName,
	}
}

// RecordCounter records a counter metric.
func (mc *MetricsCollector) RecordCounter(name string, value float64, tags map[string]string) {
	mc.logMetric(Metric{
		Name:      name,
		Type:      MetricTypeCounter,
		Value:     value,
		Unit:      "count",
		Timestamp: time.Now(),
		Tags:      mc.addServiceTag(tags),
	})
}

// RecordGauge records a gauge metric.
func (mc *MetricsCollector) RecordGauge(name string, value float64, unit string, tags map[string]string) {
	mc.logMetric(Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Unit:      unit,
		Timestamp: time.Now(),
		Tags:      mc.addServiceTag(tags),
	})
}

// RecordTiming records a timing metric.
func (mc *MetricsCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	mc.logMetric(Metric{
		Name:      name,
		Type:      MetricTypeTiming,
		Value:     float64(duration.Milliseconds()),
		Unit:      "ms",
		Timestamp: time.Now(),
		Tags:      mc.addServiceTag(tags),
	})
}

// RecordAPIRequestMetrics records standardized API request metrics.
func (mc *MetricsCollector) RecordAPIRequestMetrics(method, endpoint string, statusCode int, duration time.Duration) {
	tags := map[string]string{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": strconv.Itoa(statusCode),
	}

	mc.RecordCounter("api_requests_total", 1, tags)
	mc.RecordTiming("api_request_duration", duration, tags)
}

// RecordAggregationMetrics records the outcome of one rating batch.
func (mc *MetricsCollector) RecordAggregationMetrics(totalLines, failedLines int, maxLoadingPct float64, duration time.Duration) {
	tags := map[string]string{"operation": "aggregate"}

	mc.RecordGauge("rating_lines_total", float64(totalLines), "lines", tags)
	mc.RecordGauge("rating_lines_failed", float64(failedLines), "lines", tags)
	mc.RecordGauge("rating_max_loading", maxLoadingPct, "percent", tags)
	mc.RecordTiming("rating_batch_duration", duration, tags)
}

// addServiceTag adds the service name to tags
func (mc *MetricsCollector) addServiceTag(tags map[string]string) map[string]string {
	// Create a copy of the input map to avoid modifying the original
	result := make(map[string]string)
	for k, v := range tags {
		result[k] = v
	}
	result["service"] = mc.serviceName
	return result
}

// logMetric logs the metric using the standardized logger
func (mc *MetricsCollector) logMetric(metric Metric) {
	mc.logger.WithFields(map[string]interface{}{
		"event":  "metric",
		"metric": metric,
	}).Debug("Metric recorded")
}
