package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/pontos/internal/flagx"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Empty
// fields leave the current value untouched.
type jsonConfig struct {
	APIBaseURL      string  `json:"api_base_url"`
	HealthAddrGRPC  *string `json:"health_addr_grpc"`
	RequestTimeout  string  `json:"request_timeout"`
	TransferTimeout string  `json:"transfer_timeout"`
	LogLevel        string  `json:"log_level"`
}

// parseJSON overlays cfg with values from the file named by -c/-config.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.HealthAddrGRPC != nil {
		cfg.HealthAddrGRPC = *jc.HealthAddrGRPC
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if err := setDuration(jc.RequestTimeout, &cfg.RequestTimeout); err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	}
	if err := setDuration(jc.TransferTimeout, &cfg.TransferTimeout); err != nil {
		return fmt.Errorf("transfer_timeout: %w", err)
	}
	return nil
}

func setDuration(raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
