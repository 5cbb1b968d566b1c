// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"bitwise74/filehub/pkg/util"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")

	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers  = []string{"sqlite", "postgres"}
	validSchedulers = []string{"memory", "redis"}
)

// ErrNoSecret is returned when no JWT secret is configured. The caller is
// expected to print the generated secret and stop.
var ErrNoSecret = errors.New("no jwt secret configured")

func bindEnvs() {
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")
	v.BindEnv("app.mode", "APP_MODE")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.cors_origins", "HOST_CORS")

	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.ttl", "JWT_TTL")

	v.BindEnv("auth.admin_emails", "AUTH_ADMIN_EMAILS")

	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_DSN")

	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.region", "STORAGE_REGION")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	v.BindEnv("storage.account_id", "STORAGE_ACCOUNT_ID")

	v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")
	v.BindEnv("upload.max_files", "UPLOAD_MAX_FILES")

	v.BindEnv("chat.scheduler", "CHAT_SCHEDULER")
	v.BindEnv("chat.workers", "CHAT_WORKERS")
	v.BindEnv("chat.queue_size", "CHAT_QUEUE_SIZE")
	v.BindEnv("chat.reply_min_delay", "CHAT_REPLY_MIN_DELAY")
	v.BindEnv("chat.reply_max_delay", "CHAT_REPLY_MAX_DELAY")

	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")
	v.BindEnv("cache.public_list_ttl", "CACHE_PUBLIC_LIST_TTL")
	v.BindEnv("reclaim.schedule", "RECLAIM_SCHEDULE")
	v.BindEnv("reclaim.min_age", "RECLAIM_MIN_AGE")

	v.BindEnv("cloudflare.turnstile.enabled", "TURNSTILE_ENABLED")
	v.BindEnv("cloudflare.turnstile.secret_token", "TURNSTILE_SECRET_TOKEN")
}

// SetDefaults registers every default value. It's split out of Setup so
// tests can get a fully populated config without a config file.
func SetDefaults() {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.mode", "debug")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{"http://localhost:3001"})

	v.SetDefault("jwt.ttl", 7*24*time.Hour)

	v.SetDefault("auth.admin_emails", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.region", "auto")

	v.SetDefault("upload.max_size", 100)
	v.SetDefault("upload.max_files", 10)

	v.SetDefault("chat.scheduler", "memory")
	v.SetDefault("chat.workers", 8)
	v.SetDefault("chat.queue_size", 256)
	v.SetDefault("chat.reply_min_delay", time.Second)
	v.SetDefault("chat.reply_max_delay", 3*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.rate_limit", 20)
	v.SetDefault("cache.public_list_ttl", 5*time.Second)
	v.SetDefault("reclaim.schedule", "@every 24h")
	v.SetDefault("reclaim.min_age", time.Hour)

	v.SetDefault("cloudflare.turnstile.enabled", false)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file found, relying on environment variables")
	}

	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	bindEnvs()
	SetDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		zap.L().Warn("No config.toml found, using defaults and environment")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		return ErrNoSecret
	}

	if err := Validate(); err != nil {
		return err
	}

	// Stored in bytes from here on
	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}

// Validate checks the currently loaded values.
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetDuration("jwt.ttl") <= 0 {
		return errors.New("jwt.ttl must be bigger than 0")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if n := v.GetInt("upload.max_files"); n <= 0 || n > 10 {
		return errors.New("upload.max_files must be between 1 and 10")
	}

	if !slices.Contains(validDBDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	switch v.GetString("storage.type") {
	case "s3":
		{
			if v.GetString("storage.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
			if v.GetString("storage.access_key_id") == "" {
				return errors.New("access key id can't be empty")
			}
			if v.GetString("storage.secret_access_key") == "" {
				return errors.New("secret access key can't be empty")
			}
		}
	case "r2":
		{
			if v.GetString("storage.account_id") == "" {
				return errors.New("account id can't be empty")
			}
			if v.GetString("storage.access_key_id") == "" {
				return errors.New("account access id can't be empty")
			}
			if v.GetString("storage.secret_access_key") == "" {
				return errors.New("secret access key can't be empty")
			}
			if v.GetString("storage.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
		}
	case "memory":
		{
			if v.GetString("app.mode") == "release" {
				return errors.New("memory storage is not allowed in release mode")
			}
		}
	default:
		return errors.New("invalid storage type provided")
	}

	if !slices.Contains(validSchedulers, v.GetString("chat.scheduler")) {
		return errors.New("invalid chat scheduler provided")
	}

	if v.GetInt("chat.workers") <= 0 {
		return errors.New("chat.workers must be bigger than 0")
	}

	if v.GetInt("chat.queue_size") <= 0 {
		return errors.New("chat.queue_size must be bigger than 0")
	}

	minDelay, maxDelay := v.GetDuration("chat.reply_min_delay"), v.GetDuration("chat.reply_max_delay")
	if minDelay < 0 || maxDelay < minDelay {
		return errors.New("chat reply delays must satisfy 0 <= min <= max")
	}

	if v.GetString("chat.scheduler") == "redis" && v.GetString("redis.addr") == "" {
		return errors.New("redis.addr is required for the redis scheduler")
	}

	if v.GetDuration("reclaim.min_age") < 0 {
		return errors.New("reclaim.min_age can't be negative")
	}

	if v.GetInt("security.rate_limit") < 0 {
		return errors.New("security.rate_limit can't be negative")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		zap.L().Warn("Cloudflare turnstile is disabled, registration won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	return nil
}

func genSecret() string {
	s, err := util.GenerateToken(64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to generate secret,", err)
	}

	return s
}
