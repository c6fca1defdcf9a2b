package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/typicaltools/internal/flagx"
	"github.com/dmitrijs2005/typicaltools/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
//
// Pointer fields distinguish "absent" from "zero": only keys present in the
// file override the current Config.
type JsonConfig struct {
	HTTPAddr           *string         `json:"http_addr"`
	DatabaseDSN        *string         `json:"database_dsn"`
	SecretKey          *string         `json:"secret_key"`
	FileKey            *string         `json:"file_key"`
	UploadDir          *string         `json:"upload_dir"`
	ClaimFormPath      *string         `json:"claim_form_path"`
	ModerationWindow   *timex.Duration `json:"moderation_window"`
	AuthTTL            *timex.Duration `json:"auth_ttl"`
	SessionIdleTimeout *timex.Duration `json:"session_idle_timeout"`
	ShutdownTimeout    *timex.Duration `json:"shutdown_timeout"`
	FileBackend        *string         `json:"file_backend"`
	S3AccessKey        *string         `json:"s3_access_key"`
	S3SecretKey        *string         `json:"s3_secret_key"`
	S3Bucket           *string         `json:"s3_bucket"`
	S3Region           *string         `json:"s3_region"`
	S3BaseEndpoint     *string         `json:"s3_base_endpoint"`
	S3Prefix           *string         `json:"s3_prefix"`
	RedisURL           *string         `json:"redis_url"`
	Seed               *bool           `json:"seed"`
	AdminPassword      *string         `json:"admin_password"`
	LogLevel           *string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c / -config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile, _ := flagx.ConfigFiles()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setStr(&config.HTTPAddr, c.HTTPAddr)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.SecretKey, c.SecretKey)
	setStr(&config.FileKey, c.FileKey)
	setStr(&config.UploadDir, c.UploadDir)
	setStr(&config.ClaimFormPath, c.ClaimFormPath)
	if c.ModerationWindow != nil {
		config.ModerationWindow = c.ModerationWindow.Duration
	}
	if c.AuthTTL != nil {
		config.AuthTTL = c.AuthTTL.Duration
	}
	if c.SessionIdleTimeout != nil {
		config.SessionIdleTimeout = c.SessionIdleTimeout.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setStr(&config.FileBackend, c.FileBackend)
	setStr(&config.S3AccessKey, c.S3AccessKey)
	setStr(&config.S3SecretKey, c.S3SecretKey)
	setStr(&config.S3Bucket, c.S3Bucket)
	setStr(&config.S3Region, c.S3Region)
	setStr(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setStr(&config.S3Prefix, c.S3Prefix)
	setStr(&config.RedisURL, c.RedisURL)
	if c.Seed != nil {
		config.Seed = *c.Seed
	}
	setStr(&config.AdminPassword, c.AdminPassword)
	setStr(&config.LogLevel, c.LogLevel)
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
