// Package config loads runtime configuration for the pontos uploader CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend HTTP API
//	-g string   address:port of the backend gRPC health service ("" disables the ping)
//	-w int      per-request timeout for backend calls (seconds)
//	-x int      timeout of one binary transfer (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations are strings accepted by time.ParseDuration:
//
//	{
//	  "api_base_url": "https://api.example.org",
//	  "health_addr_grpc": "api.example.org:50051",
//	  "request_timeout": "15s",
//	  "transfer_timeout": "5m"
//	}
package config
