package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	API  APIConfig
	Geo  GeoConfig
	Mock MockConfig
	App  AppConfig
}

// APIConfig holds the connection to the link service
type APIConfig struct {
	BaseURL    string        // service root, e.g. https://www.getmyuri.com
	Timeout    time.Duration // applied to every request; platform defaults are not trusted
	AccessMode string        // "navigate" or "check"
}

// GeoConfig holds geolocation acquisition settings
type GeoConfig struct {
	LocatorCommand      string // external GPS helper; empty disables GPS
	HighAccuracyTimeout time.Duration
	LowAccuracyTimeout  time.Duration
	IPLookupURL         string
	IPLookupTimeout     time.Duration
}

// MockConfig holds settings for the local reference server
type MockConfig struct {
	Port       string
	AccessPage string // path the server bounces unauthorized visitors to
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string // "development" or "production"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()
	return &Config{
		API: APIConfig{
			BaseURL:    getEnv("GETMYURI_BASE_URL", "https://www.getmyuri.com"),
			Timeout:    getEnvDuration("GETMYURI_TIMEOUT", 15*time.Second),
			AccessMode: getEnv("GETMYURI_ACCESS_MODE", "check"),
		},
		Geo: GeoConfig{
			LocatorCommand:      getEnv("GETMYURI_LOCATOR_COMMAND", ""),
			HighAccuracyTimeout: getEnvDuration("GETMYURI_GPS_TIMEOUT", 10*time.Second),
			LowAccuracyTimeout:  getEnvDuration("GETMYURI_GPS_RETRY_TIMEOUT", 15*time.Second),
			IPLookupURL:         getEnv("GETMYURI_IP_LOOKUP_URL", "https://ipapi.co/json/"),
			IPLookupTimeout:     getEnvDuration("GETMYURI_IP_LOOKUP_TIMEOUT", 5*time.Second),
		},
		Mock: MockConfig{
			Port:       getEnv("PORT", "8080"),
			AccessPage: getEnv("GETMYURI_ACCESS_PAGE", "/auth"),
		},
		App: AppConfig{
			Environment: getEnv("GETMYURI_ENV", "development"),
		},
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
