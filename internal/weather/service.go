package weather

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/linelink/linelink-go/internal/utils"
)

const lastReadingKey = "weather:last_reading"

// Source is the upstream weather feed. Satisfied by *Client.
type Source interface {
	CurrentConditions(ctx context.Context) (*AmbientReading, error)
	HourlyForecast(ctx context.Context, hours int) ([]AmbientReading, error)
}

// Service wraps a Source with a Redis-backed last-reading cache. While the
// upstream is reachable every successful current reading refreshes the cache;
// while it is down the cached reading is served instead, flagged degraded.
// With neither a live nor a cached reading the request fails with
// ServiceDegradedError.
type Service struct {
	source   Source
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewService creates a weather service over the given source and Redis client.
func NewService(source Source, redisClient *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Service{source: source, redis: redisClient, cacheTTL: cacheTTL}
}

// Current returns the current ambient reading, live if possible, cached and
// flagged degraded otherwise.
func (s *Service) Current(ctx context.Context) (*AmbientReading, error) {
	reading, err := s.source.CurrentConditions(ctx)
	if err == nil {
		s.cacheReading(ctx, reading)
		return reading, nil
	}

	var unavailable *utils.UpstreamUnavailableError
	if !errors.As(err, &unavailable) {
		return nil, err
	}

	logrus.Warnf("Weather upstream unavailable, falling back to cached reading: %v", err)
	return s.cachedReading(ctx)
}

// Forecast returns hourly readings for the next `hours` hours. When the
// upstream is down the last cached reading is held flat across the horizon,
// every point flagged degraded.
func (s *Service) Forecast(ctx context.Context, hours int) ([]AmbientReading, error) {
	readings, err := s.source.HourlyForecast(ctx, hours)
	if err == nil {
		return readings, nil
	}

	var unavailable *utils.UpstreamUnavailableError
	if !errors.As(err, &unavailable) {
		return nil, err
	}

	logrus.Warnf("Weather upstream unavailable, holding cached reading across %dh horizon: %v", hours, err)

	cached, err := s.cachedReading(ctx)
	if err != nil {
		return nil, err
	}

	flat := make([]AmbientReading, hours)
	for i := range flat {
		r := *cached
		r.Timestamp = cached.Timestamp.Add(time.Duration(i) * time.Hour)
		r.HourOffset = i
		flat[i] = r
	}
	return flat, nil
}

func (s *Service) cacheReading(ctx context.Context, reading *AmbientReading) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		logrus.Warnf("Failed to marshal weather reading for cache: %v", err)
		return
	}
	if err := s.redis.Set(ctx, lastReadingKey, payload, s.cacheTTL).Err(); err != nil {
		logrus.Warnf("Failed to cache weather reading: %v", err)
	}
}

func (s *Service) cachedReading(ctx context.Context) (*AmbientReading, error) {
	if s.redis == nil {
		return nil, utils.NewServiceDegradedError("weather upstream unavailable and no reading cache configured")
	}

	payload, err := s.redis.Get(ctx, lastReadingKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, utils.NewServiceDegradedError("weather upstream unavailable and no cached reading exists")
	}
	if err != nil {
		return nil, utils.NewServiceDegradedError("weather upstream unavailable and reading cache unreachable: " + err.Error())
	}

	var reading AmbientReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return nil, utils.NewServiceDegradedError("weather upstream unavailable and cached reading is corrupt: " + err.Error())
	}

	reading.Degraded = true
	return &reading, nil
}
