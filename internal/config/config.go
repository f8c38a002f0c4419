package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	ServiceName    = "parts-ledger"
	ServiceVersion = "0.1.0"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Ledger   LedgerConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
	Otel     OtelConfig
}

type ServerConfig struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	Output            string // stdout | stderr
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	URL     string
	TestURL string
}

type LedgerConfig struct {
	MaxRetries int
	Isolation  string
	// Tenant and Actor are the CLI defaults; the HTTP API takes both from the token.
	Tenant string
	Actor  string
}

type JWTConfig struct {
	SecretKey string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether movement events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type OtelConfig struct {
	Endpoint   string
	AuthHeader string
	Insecure   bool
}

// Enabled reports whether an OTLP endpoint is configured.
func (o OtelConfig) Enabled() bool {
	return o.Endpoint != ""
}

// Load reads the configuration from the environment. Call godotenv.Load first to pick up .env.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "dev"),
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			Output:            getEnv("LOGGER_OUTPUT", "stdout"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			URL:     getEnv("DATABASE_URL", ""),
			TestURL: getEnv("TEST_DATABASE_URL", ""),
		},
		Ledger: LedgerConfig{
			MaxRetries: getEnvInt("LEDGER_MAX_RETRIES", 5),
			Isolation:  getEnv("LEDGER_ISOLATION", "serializable"),
			Tenant:     getEnv("LEDGER_TENANT", ""),
			Actor:      getEnv("LEDGER_ACTOR", os.Getenv("USER")),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_MOVEMENTS", "parts-ledger.movements"),
		},
		Otel: OtelConfig{
			Endpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			AuthHeader: getEnv("OTEL_AUTH_HEADER", ""),
			Insecure:   getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvSlice splits a comma-separated value, trimming blanks and dropping empty entries.
func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
