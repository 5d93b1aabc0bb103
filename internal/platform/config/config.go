package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values come from
// the environment so deployment stays twelve-factor.
type Config struct {
	Addr string

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory stores,
	// which is the development and test default.
	DatabaseURL string

	// RedisURL backs the async task store when set; empty falls back to the
	// in-memory task store.
	RedisURL string

	// KafkaBrokers and KafkaTopic configure the match event producer. An empty
	// broker list selects the in-memory publisher.
	KafkaBrokers []string
	KafkaTopic   string

	// DonorRegistryURL and RecipientRegistryURL point at the upstream
	// inventories consumed by the matching engine.
	DonorRegistryURL     string
	RecipientRegistryURL string

	// AdminToken guards administrative match mutations. Empty disables the
	// check (development mode).
	AdminToken string

	// AsyncDelay is how long simulated match reprocessing takes.
	AsyncDelay time.Duration

	// TaskTTL bounds redis retention of completed async tasks.
	TaskTTL time.Duration

	// RegistryTimeout bounds each upstream registry call.
	RegistryTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:                 getEnv("LIFELINE_ADDR", ":8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		KafkaTopic:           getEnv("KAFKA_TOPIC", "match-events"),
		DonorRegistryURL:     getEnv("DONOR_REGISTRY_URL", "http://localhost:8081"),
		RecipientRegistryURL: getEnv("RECIPIENT_REGISTRY_URL", "http://localhost:8082"),
		AdminToken:           os.Getenv("ADMIN_TOKEN"),
		AsyncDelay:           getDuration("ASYNC_DELAY", 3*time.Second),
		TaskTTL:              getDuration("TASK_TTL", 24*time.Hour),
		RegistryTimeout:      getDuration("REGISTRY_TIMEOUT", 10*time.Second),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
