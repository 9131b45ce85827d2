package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Candidate feed configuration
	Feed FeedConfig

	// Scanner configuration
	ScannerConfigDir string

	// Default webhook registration
	Webhook WebhookConfig

	// Graph query bounds
	Graph GraphConfig
}

// FeedConfig holds candidate feed connection settings
type FeedConfig struct {
	Enabled  bool
	URL      string
	APIToken string
	Channels []string
}

// WebhookConfig holds the env-provisioned default webhook. An empty URL
// means no default webhook is registered.
type WebhookConfig struct {
	URL      string
	Secret   string
	MinScore float64
}

// GraphConfig holds working-set caps for graph queries
type GraphConfig struct {
	SearchLimit      int
	MaxTraverseDepth int
	MaxTraverseNodes int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "deskgraph"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "deskgraph"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "deskgraph123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		// Candidate feed configuration
		Feed: FeedConfig{
			Enabled:  getEnvOrDefault("FEED_ENABLED", "true") == "true",
			URL:      getEnvOrDefault("FEED_WS_URL", "wss://feed.deskgraph.internal/ws"),
			APIToken: getEnvOrDefault("FEED_API_TOKEN", ""),
			Channels: getEnvList("FEED_CHANNELS"),
		},

		// Scanner configuration
		ScannerConfigDir: getEnvOrDefault("SCANNER_CONFIG_DIR", "configs/scanners"),

		// Default webhook registration
		Webhook: WebhookConfig{
			URL:      getEnvOrDefault("WEBHOOK_DEFAULT_URL", ""),
			Secret:   getEnvOrDefault("WEBHOOK_DEFAULT_SECRET", ""),
			MinScore: getEnvFloat("WEBHOOK_MIN_SCORE", 0),
		},

		// Graph query bounds
		Graph: GraphConfig{
			SearchLimit:      getEnvInt("GRAPH_SEARCH_LIMIT", 50),
			MaxTraverseDepth: getEnvInt("GRAPH_MAX_TRAVERSE_DEPTH", 10),
			MaxTraverseNodes: getEnvInt("GRAPH_MAX_TRAVERSE_NODES", 1000),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%g", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList gets a comma-separated environment variable as a slice
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
