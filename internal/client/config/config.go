package config

import "time"

// Config holds runtime settings for the uploader.
//
// Fields:
//   - APIBaseURL: scheme://host[:port] of the backend HTTP API.
//   - HealthAddrGRPC: host:port of the gRPC health service.
//   - RequestTimeout: deadline of one JSON call to the backend.
//   - TransferTimeout: deadline of the binary PUT to object storage.
type Config struct {
	APIBaseURL      string
	HealthAddrGRPC  string
	RequestTimeout  time.Duration
	TransferTimeout time.Duration
	LogLevel        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.HealthAddrGRPC = "127.0.0.1:50051"
	c.RequestTimeout = 15 * time.Second
	c.TransferTimeout = 5 * time.Minute
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
