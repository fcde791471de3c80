package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/linelink/linelink-go/internal/api"
	"github.com/linelink/linelink-go/internal/cache"
	"github.com/linelink/linelink-go/internal/config"
	"github.com/linelink/linelink-go/internal/database"
	"github.com/linelink/linelink-go/internal/griddata"
	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/metrics"
	"github.com/linelink/linelink-go/internal/middleware"
	"github.com/linelink/linelink-go/internal/models"
	"github.com/linelink/linelink-go/internal/notify"
	"github.com/linelink/linelink-go/internal/services"
	"github.com/linelink/linelink-go/internal/weather"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The database, grid loader and weather service log through logrus; keep
	// their level in step with the slog logger.
	logrus.SetLevel(logging.ParseLogrusLevel(cfg.LogLevel))

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	logger.LogStartup("linelink", "1.0.0", cfg.Server.Port)

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// Load the static grid topology
	grid, err := griddata.Load(cfg.Grid.DataDir)
	if err != nil {
		log.Fatalf("Failed to load grid data: %v", err)
	}

	// Weather feed with Redis-backed degraded-mode cache
	weatherCacheTTL, err := time.ParseDuration(cfg.Weather.CacheTTL)
	if err != nil {
		log.Fatalf("Invalid weather.cache_ttl: %v", err)
	}
	weatherSvc := weather.NewService(weather.NewClient(&cfg.Weather), redis.Client, weatherCacheTTL)

	// Rating pipeline
	collector := metrics.NewMetricsCollector(logger, "linelink")
	thresholds := models.StatusThresholds{
		WarningPct:  cfg.Thresholds.WarningPct,
		CriticalPct: cfg.Thresholds.CriticalPct,
		OverloadPct: cfg.Thresholds.OverloadPct,
	}
	aggregator := services.NewRatingAggregator(thresholds, logger, collector)
	sequencer := services.NewForecastSequencer(aggregator, cfg.Forecast.Workers, logger)

	// Alerting
	engine := services.NewAlertEngine(
		cache.NewRedisCooldownStore(redis.Client),
		cfg.Alerts.CooldownWindow(),
		cfg.Alerts.SMSTopN,
		logger,
	)

	var sink services.AlertSink
	if cfg.Telegram.BotToken != "" {
		dispatcher, err := notify.NewTelegramDispatcher(&cfg.Telegram, logger)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram dispatcher: %v", err)
		}
		sink = dispatcher
	} else {
		logger.WithComponent("notify").Warn("No Telegram credentials configured, alerts will only be logged")
		sink = notify.NewLogDispatcher(logger)
	}

	alertRepo := database.NewAlertRepository(db.Pool)
	ratingRepo := database.NewRatingRepository(db.Pool)

	scheduler := services.NewAlertScheduler(aggregator, engine, grid, weatherSvc, sink, alertRepo, ratingRepo, services.SchedulerConfig{
		Interval:    time.Duration(cfg.Alerts.IntervalMinutes) * time.Minute,
		Atmosphere:  models.Atmosphere(cfg.Grid.Atmosphere),
		LatitudeDeg: cfg.Grid.LatitudeDeg,
		ElevationFt: cfg.Grid.ElevationFt,
	}, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Setup Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(logger, collector))

	handler := api.NewHandler(grid, weatherSvc, aggregator, sequencer, scheduler, alertRepo, ratingRepo, redis, cfg, logger)
	api.SetupRoutes(router, db, redis, handler)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.LogShutdown("linelink", "signal received")
	log.Println("Server exited")
}
