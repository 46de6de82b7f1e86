// Package config loads process configuration from an optional .env file and
// TIMETABLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/blob"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/persistence/redis"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/persistence"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "TIMETABLE_"

// Config is the full process configuration.
type Config struct {
	Storage persistence.Config
	Archive blob.Config
	// ArchiveKeep is how many full exports the audit job retains; 0 keeps all.
	ArchiveKeep int

	HTTPAddr  string
	LogLevel  logrus.Level
	LogFormat string
	// AuditSpec is a robfig/cron spec; empty disables the audit job.
	AuditSpec string
}

// Load reads the given .env files (".env" when none are named; missing files
// are ignored) and then builds the config from the process environment.
// Variables already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the config from a variable lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	var errs []error
	getInt := func(key string, def int) int {
		raw := get(key, "")
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return def
		}
		return n
	}
	getBool := func(key string) bool {
		raw := get(key, "false")
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		}
		return b
	}

	s3cfg := blob.S3Config{
		Bucket:          get("S3_BUCKET", ""),
		Region:          get("S3_REGION", ""),
		Endpoint:        get("S3_ENDPOINT", ""),
		AccessKeyID:     get("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: get("S3_SECRET_ACCESS_KEY", ""),
		PathStyle:       getBool("S3_PATH_STYLE"),
	}
	cfg := Config{
		Storage: persistence.Config{
			Driver:      domain.Driver(strings.ToLower(get("STORAGE_DRIVER", string(domain.DriverSQLite)))),
			SQLitePath:  get("SQLITE_PATH", "timetable.db"),
			PostgresDSN: get("POSTGRES_DSN", ""),
			Redis: redis.Options{
				Addr:     get("REDIS_ADDR", "localhost:6379"),
				Password: get("REDIS_PASSWORD", ""),
				DB:       getInt("REDIS_DB", 0),
			},
			FileRoot: get("FILE_ROOT", "./data"),
			S3:       s3cfg,
			Prefix:   get("STATE_PREFIX", ""),
		},
		Archive: blob.Config{
			Driver: blob.Driver(strings.ToLower(get("ARCHIVE_DRIVER", string(blob.DriverFilesystem)))),
			Root:   get("ARCHIVE_ROOT", "./archive"),
			S3:     s3cfg,
		},
		ArchiveKeep: getInt("ARCHIVE_KEEP", 30),
		HTTPAddr:    get("HTTP_ADDR", ":8080"),
		LogFormat:   strings.ToLower(get("LOG_FORMAT", "json")),
		AuditSpec:   get("AUDIT_CRON", "@hourly"),
	}
	level, err := logrus.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Errorf("%sLOG_LEVEL: %w", EnvPrefix, err))
		level = logrus.InfoLevel
	}
	cfg.LogLevel = level
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("%sLOG_FORMAT: want json or text, got %q", EnvPrefix, cfg.LogFormat))
	}
	if cfg.ArchiveKeep < 0 {
		errs = append(errs, fmt.Errorf("%sARCHIVE_KEEP must not be negative", EnvPrefix))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the process logger from the config.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
