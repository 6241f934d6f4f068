package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server (OAuth redirect/callback surface)
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Discord
	DiscordToken    string
	DiscordClientID string

	// UCI OAuth (identity provider)
	UCIClientID     string
	UCIClientSecret string
	UCIRedirectURI  string
	UCIAuthorizeURL string
	UCITokenURL     string
	UCIProfileURL   string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis (correlation token store)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka (optional lifecycle event stream; empty brokers disables publishing)
	KafkaBrokers []string
	KafkaTopic   string

	// Timeout sweep
	SweepInterval time.Duration

	// Notification message templates (optional YAML override)
	MessagesPath string
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "3000"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		DiscordToken:    getEnv("DISCORD_TOKEN", ""),
		DiscordClientID: getEnv("DISCORD_CLIENT_ID", ""),

		UCIClientID:     getEnv("UCI_CLIENT_ID", ""),
		UCIClientSecret: getEnv("UCI_CLIENT_SECRET", ""),
		UCIRedirectURI:  getEnv("UCI_REDIRECT_URI", "http://localhost:3000/auth/callback"),
		UCIAuthorizeURL: getEnv("UCI_AUTHORIZE_URL", "https://uci.space/oauth/authorize"),
		UCITokenURL:     getEnv("UCI_TOKEN_URL", "https://uci.space/oauth/token"),
		UCIProfileURL:   getEnv("UCI_PROFILE_URL", "https://uci.space/api/profile"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "ragtag"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "ragtag123"),
		PostgresDB:       getEnv("POSTGRES_DB", "ragtag"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ragtag.membership.events"),

		SweepInterval: getDuration("SWEEP_INTERVAL", 15*time.Minute),

		MessagesPath: getEnv("MESSAGES_PATH", ""),
	}
}

// BaseURL strips the callback path off the redirect URI; verify links handed
// to members point at /auth/start on the same host.
func (c *Config) BaseURL() string {
	return strings.TrimSuffix(c.UCIRedirectURI, "/auth/callback")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
