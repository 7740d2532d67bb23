package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort string
	ServerEnv  string
	ServerHost string

	// Database
	DatabaseURL string

	// Geocoding provider
	GeocoderBaseURL   string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	CountryCode       string
	// Bounding box for the target country (lon/lat order as the
	// provider expects: west, north, east, south)
	ViewboxWest  float64
	ViewboxNorth float64
	ViewboxEast  float64
	ViewboxSouth float64

	// Geocoding budget and batching
	DailyRequestLimit int
	SubBatchSize      int
	SubBatchDelay     time.Duration

	// Cache
	MemoryCacheSize int
	MemoryCacheTTL  time.Duration
	DBCacheTTL      time.Duration
	CacheSweepEvery time.Duration
}

func Load() *Config {
	return &Config{
		// Server
		ServerPort: getEnv("SERVER_PORT", "3000"),
		ServerEnv:  getEnv("SERVER_ENV", "development"),
		ServerHost: getEnv("SERVER_HOST", "localhost:3000"),

		// Database - DATABASE_URL wins, otherwise built from parts
		DatabaseURL: getDatabaseURL(),

		// Geocoding provider (Nominatim-compatible)
		GeocoderBaseURL:   getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "guia-camiones-atmosfericos/1.0"),
		GeocoderTimeout:   getEnvAsDuration("GEOCODER_TIMEOUT", 10*time.Second),
		CountryCode:       getEnv("GEOCODER_COUNTRY_CODE", "ar"),

		// Argentina, roughly Quiaca to Ushuaia
		ViewboxWest:  getEnvAsFloat("GEOCODER_VIEWBOX_WEST", -73.6),
		ViewboxNorth: getEnvAsFloat("GEOCODER_VIEWBOX_NORTH", -21.7),
		ViewboxEast:  getEnvAsFloat("GEOCODER_VIEWBOX_EAST", -53.6),
		ViewboxSouth: getEnvAsFloat("GEOCODER_VIEWBOX_SOUTH", -55.1),

		DailyRequestLimit: getEnvAsInt("GEOCODER_DAILY_LIMIT", 2500),
		SubBatchSize:      getEnvAsInt("GEOCODER_SUB_BATCH_SIZE", 4),
		SubBatchDelay:     getEnvAsDuration("GEOCODER_SUB_BATCH_DELAY", time.Second),

		MemoryCacheSize: getEnvAsInt("GEOCODE_MEMORY_CACHE_SIZE", 500),
		MemoryCacheTTL:  getEnvAsDuration("GEOCODE_MEMORY_CACHE_TTL", time.Hour),
		DBCacheTTL:      getEnvAsDuration("GEOCODE_DB_CACHE_TTL", 30*24*time.Hour),
		CacheSweepEvery: getEnvAsDuration("GEOCODE_CACHE_SWEEP_EVERY", 6*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getDatabaseURL returns DATABASE_URL or builds it from individual env vars
func getDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "")
	dbname := getEnv("POSTGRES_DB", "guia_atmosfericos")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}
