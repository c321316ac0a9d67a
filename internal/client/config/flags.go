package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/pontos/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags listed in the package doc are taken from args, so the
// uploader's own flags do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-w", "-x", "-l"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the backend API")
	fs.StringVar(&cfg.HealthAddrGRPC, "g", cfg.HealthAddrGRPC, "address and port of the gRPC health service")
	requestTimeout := fs.Int("w", int(cfg.RequestTimeout.Seconds()), "backend request timeout (in seconds)")
	transferTimeout := fs.Int("x", int(cfg.TransferTimeout.Seconds()), "transfer timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.TransferTimeout = time.Duration(*transferTimeout) * time.Second
	return nil
}
