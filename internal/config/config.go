package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server        ServerConfig
	Providers     ProvidersConfig
	Notifications NotificationsConfig
	Navigation    NavigationConfig
	DB            DatabaseConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	RateLimitRPS  int
	EventBuffer   int
	AllowedOrigin string
}

type ProvidersConfig struct {
	GoogleAPIKey    string
	RoutesURL       string
	GeocodingURL    string
	HazardAlertsURL string
	AlertsLanguage  string
	WeatherAPIKey   string
	WeatherAPIURL   string
}

type NotificationsConfig struct {
	Enabled    bool
	Interval   time.Duration
	FixTimeout time.Duration
}

type NavigationConfig struct {
	AlertRefetchDistanceMeters float64
	GeofenceRadiusMeters       float64
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "localhost"),
			Port:          getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:  getEnvInt("RATE_LIMIT_RPS", 10),
			EventBuffer:   getEnvInt("EVENT_BUFFER_SIZE", 64),
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		},
		Providers: ProvidersConfig{
			GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
			RoutesURL:       getEnv("ROUTES_URL", "https://routes.googleapis.com"),
			GeocodingURL:    getEnv("GEOCODING_URL", "https://maps.googleapis.com"),
			HazardAlertsURL: getEnv("HAZARD_ALERTS_URL", "https://weather.googleapis.com"),
			AlertsLanguage:  getEnv("ALERTS_LANGUAGE", "en"),
			WeatherAPIKey:   getEnv("WEATHERAPI_KEY", ""),
			WeatherAPIURL:   getEnv("WEATHERAPI_URL", "https://api.weatherapi.com"),
		},
		Notifications: NotificationsConfig{
			Enabled:    getEnvBool("NOTIFY_ENABLED", true),
			Interval:   getEnvDuration("NOTIFY_INTERVAL", 15*time.Minute),
			FixTimeout: getEnvDuration("NOTIFY_FIX_TIMEOUT", 30*time.Second),
		},
		Navigation: NavigationConfig{
			AlertRefetchDistanceMeters: getEnvFloat("ALERT_REFETCH_DISTANCE_M", 5000),
			GeofenceRadiusMeters:       getEnvFloat("GEOFENCE_RADIUS_M", 25),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/trip-alerts.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 request per second")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Providers.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if c.Notifications.Enabled && c.Providers.WeatherAPIKey == "" {
		return fmt.Errorf("WEATHERAPI_KEY is required when notifications are enabled")
	}
	if c.Notifications.Interval < time.Minute {
		return fmt.Errorf("notification interval must be at least 1 minute")
	}

	if c.Navigation.AlertRefetchDistanceMeters <= 0 {
		return fmt.Errorf("alert refetch distance must be positive")
	}
	if c.Navigation.GeofenceRadiusMeters <= 0 {
		return fmt.Errorf("geofence radius must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
