package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Weather     WeatherConfig    `mapstructure:"weather"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Grid        GridConfig       `mapstructure:"grid"`
	Thresholds  ThresholdsConfig `mapstructure:"thresholds"`
	Alerts      AlertsConfig     `mapstructure:"alerts"`
	Forecast    ForecastConfig   `mapstructure:"forecast"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WeatherConfig struct {
	BaseURL   string  `mapstructure:"base_url"`
	APIKey    string  `mapstructure:"api_key" json:"-" yaml:"-"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Timeout   int     `mapstructure:"timeout"`
	CacheTTL  string  `mapstructure:"cache_ttl"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID   string `mapstructure:"chat_id"`
}

type GridConfig struct {
	DataDir     string  `mapstructure:"data_dir"`
	Atmosphere  string  `mapstructure:"atmosphere"`
	LatitudeDeg float64 `mapstructure:"latitude_deg"`
	ElevationFt float64 `mapstructure:"elevation_ft"`
}

type ThresholdsConfig struct {
	WarningPct  float64 `mapstructure:"warning_pct"`
	CriticalPct float64 `mapstructure:"critical_pct"`
	OverloadPct float64 `mapstructure:"overload_pct"`
}

type AlertsConfig struct {
	CooldownMinutes int `mapstructure:"cooldown_minutes"`
	SMSTopN         int `mapstructure:"sms_top_n"`
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

type ForecastConfig struct {
	HorizonHours     int     `mapstructure:"horizon_hours"`
	Workers          int     `mapstructure:"workers"`
	FailureScanStepC float64 `mapstructure:"failure_scan_step_c"`
	FailureScanMinC  float64 `mapstructure:"failure_scan_min_c"`
	FailureScanMaxC  float64 `mapstructure:"failure_scan_max_c"`
	ResponseCacheTTL string  `mapstructure:"response_cache_ttl"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	if err := viper.BindEnv("weather.api_key", "OPENWEATHER_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENWEATHER_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	t := c.Thresholds
	if t.WarningPct <= 0 || t.WarningPct >= t.CriticalPct || t.CriticalPct > t.OverloadPct {
		return fmt.Errorf("thresholds must satisfy 0 < warning < critical <= overload, got %.1f/%.1f/%.1f",
			t.WarningPct, t.CriticalPct, t.OverloadPct)
	}

	if c.Alerts.CooldownMinutes <= 0 {
		return fmt.Errorf("alerts.cooldown_minutes must be positive, got %d", c.Alerts.CooldownMinutes)
	}
	if c.Alerts.SMSTopN < 0 {
		return fmt.Errorf("alerts.sms_top_n must not be negative, got %d", c.Alerts.SMSTopN)
	}

	f := c.Forecast
	if f.HorizonHours <= 0 {
		return fmt.Errorf("forecast.horizon_hours must be positive, got %d", f.HorizonHours)
	}
	if f.FailureScanStepC <= 0 {
		return fmt.Errorf("forecast.failure_scan_step_c must be positive, got %.1f", f.FailureScanStepC)
	}
	if f.FailureScanMinC >= f.FailureScanMaxC {
		return fmt.Errorf("forecast failure scan range [%.1f, %.1f] is empty", f.FailureScanMinC, f.FailureScanMaxC)
	}
	if f.ResponseCacheTTL != "" {
		if _, err := time.ParseDuration(f.ResponseCacheTTL); err != nil {
			return fmt.Errorf("invalid forecast.response_cache_ttl: %w", err)
		}
	}

	if c.Weather.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Weather.CacheTTL); err != nil {
			return fmt.Errorf("invalid weather.cache_ttl: %w", err)
		}
	}

	switch c.Grid.Atmosphere {
	case "Clear", "Industrial":
	default:
		return fmt.Errorf("grid.atmosphere must be Clear or Industrial, got %q", c.Grid.Atmosphere)
	}

	return nil
}

// CooldownWindow returns the alert cooldown as a duration.
func (c *AlertsConfig) CooldownWindow() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "linelink")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Weather (OpenWeatherMap, Oahu grid area)
	viper.SetDefault("weather.base_url", "http://api.openweathermap.org/data/2.5")
	viper.SetDefault("weather.api_key", "")
	viper.SetDefault("weather.latitude", 21.3099)
	viper.SetDefault("weather.longitude", -157.8581)
	viper.SetDefault("weather.timeout", 10)
	viper.SetDefault("weather.cache_ttl", "24h")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")

	// Grid data
	viper.SetDefault("grid.data_dir", "./data")
	viper.SetDefault("grid.atmosphere", "Clear")
	viper.SetDefault("grid.latitude_deg", 21.3099)
	viper.SetDefault("grid.elevation_ft", 1000)

	// Loading thresholds
	viper.SetDefault("thresholds.warning_pct", 80.0)
	viper.SetDefault("thresholds.critical_pct", 95.0)
	viper.SetDefault("thresholds.overload_pct", 100.0)

	// Alerts
	viper.SetDefault("alerts.cooldown_minutes", 30)
	viper.SetDefault("alerts.sms_top_n", 3)
	viper.SetDefault("alerts.interval_minutes", 15)

	// Forecast
	viper.SetDefault("forecast.horizon_hours", 24)
	viper.SetDefault("forecast.workers", 8)
	viper.SetDefault("forecast.failure_scan_step_c", 1.0)
	viper.SetDefault("forecast.failure_scan_min_c", 20.0)
	viper.SetDefault("forecast.failure_scan_max_c", 50.0)
	viper.SetDefault("forecast.response_cache_ttl", "30m")
}
