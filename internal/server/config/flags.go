package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   secret for staff session tokens
//	-k string   file encryption key (16, 24 or 32 bytes)
//	-u string   upload directory for the disk backend
//	-m int      comment moderation window, minutes
//	-t int      staff session lifetime, minutes
//	-b string   file backend ("disk" or "s3")
//	-r string   Redis URL for anonymous sessions
//	-l string   log level
//	-seed       seed starter data at startup
//
// Only these flags are picked out of os.Args via flagx.FilterArgs, so the
// config-file flags (-c, -config, -env) do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-u", "-m", "-t", "-b", "-r", "-l", "-seed"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.FileKey, "k", config.FileKey, "file encryption key")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "upload directory")

	moderationWindow := fs.Int("m", int(config.ModerationWindow.Minutes()), "moderation_window (in minutes)")
	authTTL := fs.Int("t", int(config.AuthTTL.Minutes()), "auth_ttl (in minutes)")

	fs.StringVar(&config.FileBackend, "b", config.FileBackend, "file backend (disk|s3)")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL for sessions")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.Seed, "seed", config.Seed, "seed starter data")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// minute flags only override when given, so sub-minute values from
	// the environment or JSON survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m":
			config.ModerationWindow = time.Duration(*moderationWindow) * time.Minute
		case "t":
			config.AuthTTL = time.Duration(*authTTL) * time.Minute
		}
	})
}
