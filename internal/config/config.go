// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the process needs at startup.
type Config struct {
	// GitHubToken authenticates the service's own GraphQL/REST calls.
	GitHubToken string
	// GitHubOrg scopes every fetch to one organization.
	GitHubOrg string
	// GitHubClientID is the OAuth app client ID used by the device
	// authorization flow.
	GitHubClientID string
	// GraphQLURL is the GraphQL endpoint; overridable for tests.
	GraphQLURL string
	// RESTURL is the REST API base; overridable for tests.
	RESTURL string
	// RefreshInterval is the snapshot refresh period.
	RefreshInterval time.Duration
	// DBPath is the sqlite file holding the identity link table.
	DBPath string
	// LogFile and LogLevel configure logging.
	LogFile  string
	LogLevel string
}

// Load reads configuration from the environment. Only the credentials and
// organization scope are mandatory.
func Load() (Config, error) {
	cfg := Config{
		GitHubToken:    os.Getenv("GHCORD_GITHUB_TOKEN"),
		GitHubOrg:      os.Getenv("GHCORD_GITHUB_ORG"),
		GitHubClientID: os.Getenv("GHCORD_GITHUB_CLIENT_ID"),
		GraphQLURL:     getEnv("GHCORD_GRAPHQL_URL", "https://api.github.com/graphql"),
		RESTURL:        getEnv("GHCORD_REST_URL", "https://api.github.com"),
		DBPath:         getEnv("GHCORD_DB_PATH", "ghcord.db"),
		LogFile:        getEnv("GHCORD_LOG_FILE", "ghcord.log"),
		LogLevel:       getEnv("GHCORD_LOG_LEVEL", "info"),
	}

	if cfg.GitHubToken == "" {
		return Config{}, fmt.Errorf("GHCORD_GITHUB_TOKEN not set")
	}
	if cfg.GitHubOrg == "" {
		return Config{}, fmt.Errorf("GHCORD_GITHUB_ORG not set")
	}

	interval := getEnv("GHCORD_REFRESH_INTERVAL", "5m")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return Config{}, fmt.Errorf("invalid GHCORD_REFRESH_INTERVAL %q: %w", interval, err)
	}
	cfg.RefreshInterval = d

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
