// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Irehund/jobtrack/internal/source"
)

// Config holds all runtime configuration for JobTrack.
type Config struct {
	Port                string
	DatabaseURL         string
	RedisURL            string
	Country             string // Adzuna market code, e.g. "us", "gb"
	SearchIntervalHours int    // How often the scheduled search fires

	USAJobsKey   string
	USAJobsEmail string // registered email, sent as the User-Agent
	AdzunaAppID  string
	AdzunaAppKey string
	RapidAPIKey  string // one JSearch subscription covers indeed/linkedin/glassdoor
	ORSKey       string // OpenRouteService, commute estimates
}

// Load reads environment variables and returns a validated Config for the
// daemon. DATABASE_URL and REDIS_URL are required.
func Load() (*Config, error) {
	cfg := fromEnv()

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if s := os.Getenv("SEARCH_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SEARCH_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		cfg.SearchIntervalHours = v
	}

	return cfg, nil
}

// LoadLocal returns the configuration subset the CLI needs: source
// credentials and search defaults. Nothing is required; a missing
// credential simply leaves its source disabled.
func LoadLocal() *Config {
	return fromEnv()
}

func fromEnv() *Config {
	country := os.Getenv("ADZUNA_COUNTRY")
	if country == "" {
		country = "us"
	}

	port := os.Getenv("JOBTRACK_PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		Port:                port,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		Country:             country,
		SearchIntervalHours: 6,
		USAJobsKey:          os.Getenv("USAJOBS_API_KEY"),
		USAJobsEmail:        os.Getenv("USAJOBS_EMAIL"),
		AdzunaAppID:         os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:        os.Getenv("ADZUNA_APP_KEY"),
		RapidAPIKey:         os.Getenv("RAPIDAPI_KEY"),
		ORSKey:              os.Getenv("ORS_API_KEY"),
	}
}

// Credentials assembles the per-source credential map consumed by the
// source registry. Adzuna's app id and key travel as one composite value.
func (c *Config) Credentials() source.Credentials {
	creds := source.Credentials{}
	if c.USAJobsKey != "" {
		creds["usajobs"] = c.USAJobsKey
	}
	if c.USAJobsEmail != "" {
		creds["usajobs_email"] = c.USAJobsEmail
	}
	if c.AdzunaAppID != "" {
		creds["adzuna"] = c.AdzunaAppID + ":" + c.AdzunaAppKey
	}
	if c.RapidAPIKey != "" {
		creds["indeed"] = c.RapidAPIKey
		creds["linkedin"] = c.RapidAPIKey
		creds["glassdoor"] = c.RapidAPIKey
	}
	if c.ORSKey != "" {
		creds["openrouteservice"] = c.ORSKey
	}
	return creds
}
