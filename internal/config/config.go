package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds settings for the relay server runtime.
type ServerConfig struct {
	ListenAddr      string
	Database        DatabaseConfig
	AllowedOrigins  []string
	HistoryLimit    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	ShutdownTimeout time.Duration
	MaxMessageBytes int64
	LogLevel        string
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL string
	Room      string
	Username  string
}

// DatabaseConfig captures storage configuration.
type DatabaseConfig struct {
	Path string
}

// LoadServerConfig builds the server configuration from environment variables with sensible defaults.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      envOrDefault("DRIFTLINE_LISTEN_ADDR", ":4000"),
		Database:        DatabaseConfig{Path: envOrDefault("DRIFTLINE_DB_PATH", "driftline.db")},
		AllowedOrigins:  envList("DRIFTLINE_ALLOWED_ORIGINS", nil),
		HistoryLimit:    envInt("DRIFTLINE_HISTORY_LIMIT", 50),
		ReadTimeout:     envDuration("DRIFTLINE_READ_TIMEOUT", 60*time.Second),
		WriteTimeout:    envDuration("DRIFTLINE_WRITE_TIMEOUT", 10*time.Second),
		PingInterval:    envDuration("DRIFTLINE_PING_INTERVAL", 54*time.Second),
		ShutdownTimeout: envDuration("DRIFTLINE_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxMessageBytes: envInt64("DRIFTLINE_MAX_MESSAGE_BYTES", 1<<16),
		LogLevel:        envOrDefault("DRIFTLINE_LOG_LEVEL", "info"),
	}
}

// LoadClientConfig builds the client configuration from environment variables.
func LoadClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL: envOrDefault("DRIFTLINE_SERVER_URL", "ws://localhost:4000/ws"),
		Room:      envOrDefault("DRIFTLINE_ROOM", "general"),
		Username:  envOrDefault("DRIFTLINE_USERNAME", "anonymous"),
	}
}

func envOrDefault(key, value string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return value
}

func envList(key string, def []string) []string {
	env, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parts := strings.Split(env, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return def
	}
	return values
}

func envDuration(key string, def time.Duration) time.Duration {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}
