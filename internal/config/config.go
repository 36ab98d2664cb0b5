// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr       string
	DBPath           string
	SweepInterval    time.Duration
	SettleDelay      time.Duration
	NetrosaEndpoint  string
	IPFSPinURL       string
	IPFSAPIKey       string
	FormPollInterval time.Duration
	FormOpenTimeout  time.Duration
	// SecretKey is the 32-byte AES-256 key protecting stored destination
	// credentials; nil when AGGREGATE_SECRET_KEY is absent.
	SecretKey []byte
}

// Load reads configuration from environment variables and returns a validated
// Config. All variables are optional and fall back to defaults:
// AGGREGATE_LISTEN_ADDR (127.0.0.1:8080), AGGREGATE_DB_PATH (aggregate.db),
// AGGREGATE_SWEEP_INTERVAL (5m), AGGREGATE_SETTLE_DELAY (3s),
// AGGREGATE_NETROSA_ENDPOINT (https://api.netrosa.io),
// AGGREGATE_IPFS_PIN_URL (https://ipfs.netvote.io/api/v0/add),
// AGGREGATE_IPFS_API_KEY (empty), AGGREGATE_FORM_POLL_INTERVAL (2s),
// AGGREGATE_FORM_OPEN_TIMEOUT (10m).
//
// AGGREGATE_SECRET_KEY is optional but required before any publisher can
// be created: 64 hex characters decoding to the 32-byte key that encrypts
// stored destination credentials.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       "127.0.0.1:8080",
		DBPath:           "aggregate.db",
		SweepInterval:    5 * time.Minute,
		SettleDelay:      3 * time.Second,
		NetrosaEndpoint:  "https://api.netrosa.io",
		IPFSPinURL:       "https://ipfs.netvote.io/api/v0/add",
		IPFSAPIKey:       os.Getenv("AGGREGATE_IPFS_API_KEY"),
		FormPollInterval: 2 * time.Second,
		FormOpenTimeout:  10 * time.Minute,
	}

	if v, ok := os.LookupEnv("AGGREGATE_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("AGGREGATE_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("AGGREGATE_NETROSA_ENDPOINT"); ok {
		cfg.NetrosaEndpoint = v
	}
	if v, ok := os.LookupEnv("AGGREGATE_IPFS_PIN_URL"); ok {
		cfg.IPFSPinURL = v
	}

	durations := []struct {
		env  string
		dest *time.Duration
	}{
		{"AGGREGATE_SWEEP_INTERVAL", &cfg.SweepInterval},
		{"AGGREGATE_SETTLE_DELAY", &cfg.SettleDelay},
		{"AGGREGATE_FORM_POLL_INTERVAL", &cfg.FormPollInterval},
		{"AGGREGATE_FORM_OPEN_TIMEOUT", &cfg.FormOpenTimeout},
	}
	for _, d := range durations {
		if v, ok := os.LookupEnv(d.env); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("%s has invalid duration %q: %w", d.env, v, err)
			}
			*d.dest = parsed
		}
	}

	if v, ok := os.LookupEnv("AGGREGATE_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("AGGREGATE_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("AGGREGATE_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.SecretKey = key
	}

	return cfg, nil
}
