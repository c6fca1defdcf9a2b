package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/flagx"
	"github.com/joho/godotenv"
)

// envPrefix namespaces every variable read by parseEnv.
const envPrefix = "TT_"

// parseEnv loads a dotenv file and then overlays TT_* environment variables.
//
// The dotenv file is taken from the -env flag; without it ./.env is tried and
// silently skipped when absent. godotenv never overrides variables that are
// already set, so the real environment wins over the file.
//
// Recognised variables:
//
//	TT_HTTP_ADDR, TT_DATABASE_DSN, TT_SECRET_KEY, TT_FILE_KEY, TT_UPLOAD_DIR,
//	TT_CLAIM_FORM_PATH, TT_MODERATION_WINDOW, TT_AUTH_TTL,
//	TT_SESSION_IDLE_TIMEOUT, TT_SHUTDOWN_TIMEOUT, TT_FILE_BACKEND,
//	TT_S3_ACCESS_KEY, TT_S3_SECRET_KEY, TT_S3_BUCKET, TT_S3_REGION,
//	TT_S3_BASE_ENDPOINT, TT_S3_PREFIX, TT_REDIS_URL, TT_SEED,
//	TT_ADMIN_PASSWORD, TT_LOG_LEVEL
//
// Malformed durations or booleans panic, like the JSON and flag layers.
func parseEnv(config *Config) {
	_, envFile := flagx.ConfigFiles()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	str("FILE_KEY", &config.FileKey)
	str("UPLOAD_DIR", &config.UploadDir)
	str("CLAIM_FORM_PATH", &config.ClaimFormPath)
	dur("MODERATION_WINDOW", &config.ModerationWindow)
	dur("AUTH_TTL", &config.AuthTTL)
	dur("SESSION_IDLE_TIMEOUT", &config.SessionIdleTimeout)
	dur("SHUTDOWN_TIMEOUT", &config.ShutdownTimeout)
	str("FILE_BACKEND", &config.FileBackend)
	str("S3_ACCESS_KEY", &config.S3AccessKey)
	str("S3_SECRET_KEY", &config.S3SecretKey)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("S3_PREFIX", &config.S3Prefix)
	str("REDIS_URL", &config.RedisURL)
	str("ADMIN_PASSWORD", &config.AdminPassword)
	str("LOG_LEVEL", &config.LogLevel)

	if v, ok := os.LookupEnv(envPrefix + "SEED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.Seed = b
	}
}
