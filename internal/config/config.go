// Package config reads service configuration from the environment. main
// loads a .env file first, so values can come from either place.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Listen        string        // HTTP listen address
	AdminToken    string        // admin bearer token; empty enables the setup flow
	DatabaseURL   string        // Postgres DSN; empty selects the in-memory store
	FetchTimeout  time.Duration // per-link fetch timeout
	FetchParallel int           // concurrent fetches per aggregation
}

func Load() *Config {
	return &Config{
		Listen:        getEnv("SUBMERGE_LISTEN", "127.0.0.1:25600"),
		AdminToken:    getEnv("SUBMERGE_ADMIN_TOKEN", ""),
		DatabaseURL:   getEnv("SUBMERGE_DATABASE_URL", ""),
		FetchTimeout:  time.Duration(getEnvInt("SUBMERGE_FETCH_TIMEOUT", 10)) * time.Second,
		FetchParallel: getEnvInt("SUBMERGE_FETCH_PARALLEL", 8),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
