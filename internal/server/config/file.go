package config

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pontos/internal/flagx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. PONTOS_DATABASE_DSN.
const envPrefix = "PONTOS"

// keys lists every setting the file/env layer understands.
var keys = []string{
	"http_addr", "health_addr_grpc", "database_dsn", "secret_key", "jwks_url",
	"s3_root_user", "s3_root_password", "s3_region", "s3_base_endpoint", "audio_bucket",
	"presign_ttl", "verify_on_complete", "max_upload_bytes",
	"redis_addr", "redis_password", "redis_db", "init_per_hour",
	"log_level", "log_format", "shutdown_timeout",
}

// parseFile overlays values from a .env file (if present in the working
// directory), the config file named by -c/-config (YAML, JSON or TOML,
// chosen by extension) and PONTOS_* environment variables. Only keys that
// are actually set override the current values.
func parseFile(cfg *Config, args []string) error {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if path := flagx.ConfigFileFlag(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	apply(v, cfg)
	return nil
}

func apply(v *viper.Viper, cfg *Config) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	setString("http_addr", &cfg.HTTPAddr)
	setString("health_addr_grpc", &cfg.HealthAddrGRPC)
	setString("database_dsn", &cfg.DatabaseDSN)
	setString("secret_key", &cfg.SecretKey)
	setString("jwks_url", &cfg.JWKSURL)
	setString("s3_root_user", &cfg.S3RootUser)
	setString("s3_root_password", &cfg.S3RootPassword)
	setString("s3_region", &cfg.S3Region)
	setString("s3_base_endpoint", &cfg.S3BaseEndpoint)
	setString("audio_bucket", &cfg.AudioBucket)
	setString("redis_addr", &cfg.RedisAddr)
	setString("redis_password", &cfg.RedisPassword)
	setString("log_level", &cfg.LogLevel)
	setString("log_format", &cfg.LogFormat)

	if v.IsSet("presign_ttl") {
		cfg.PresignTTL = v.GetDuration("presign_ttl")
	}
	if v.IsSet("shutdown_timeout") {
		cfg.ShutdownTimeout = v.GetDuration("shutdown_timeout")
	}
	if v.IsSet("verify_on_complete") {
		cfg.VerifyOnComplete = v.GetBool("verify_on_complete")
	}
	if v.IsSet("max_upload_bytes") {
		cfg.MaxUploadBytes = v.GetInt64("max_upload_bytes")
	}
	if v.IsSet("redis_db") {
		cfg.RedisDB = v.GetInt("redis_db")
	}
	if v.IsSet("init_per_hour") {
		cfg.InitPerHour = v.GetInt("init_per_hour")
	}
}
