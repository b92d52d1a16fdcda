package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything cmd/server needs to wire the process. Values
// come from the environment, optionally seeded from a .env file.
type Config struct {
	ListenAddr   string
	PostgresDSN  string
	KafkaBrokers []string
	LogLevel     string
}

// Load reads .env when present (missing files are fine) and resolves the
// environment. An empty PostgresDSN selects the in-memory store; an empty
// broker list disables event publishing.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:  getenv("LEDGER_LISTEN_ADDR", ":8080"),
		PostgresDSN: os.Getenv("LEDGER_POSTGRES_DSN"),
		LogLevel:    getenv("LEDGER_LOG_LEVEL", "info"),
	}
	if brokers := os.Getenv("LEDGER_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
