package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("reads TT_ variables", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Chdir(t.TempDir())

		t.Setenv("TT_HTTP_ADDR", ":1234")
		t.Setenv("TT_FILE_KEY", "abcdefghijklmnop")
		t.Setenv("TT_SESSION_IDLE_TIMEOUT", "90s")
		t.Setenv("TT_FILE_BACKEND", "s3")
		t.Setenv("TT_REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("TT_SEED", "true")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, ":1234", cfg.HTTPAddr)
		assert.Equal(t, "abcdefghijklmnop", cfg.FileKey)
		assert.Equal(t, 90*time.Second, cfg.SessionIdleTimeout)
		assert.Equal(t, FileBackendS3, cfg.FileBackend)
		assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
		assert.True(t, cfg.Seed)
		assert.Equal(t, 10*time.Minute, cfg.ModerationWindow)
	})

	t.Run("loads dotenv file from -env", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.env")
		require.NoError(t, os.WriteFile(path, []byte("TT_ADMIN_PASSWORD=from-dotenv\nTT_AUTH_TTL=15m\n"), 0o600))
		os.Args = []string{"testbin", "-env", path}

		// godotenv sets process env; make sure the test does not leak it
		t.Setenv("TT_ADMIN_PASSWORD", "")
		require.NoError(t, os.Unsetenv("TT_ADMIN_PASSWORD"))
		t.Setenv("TT_AUTH_TTL", "")
		require.NoError(t, os.Unsetenv("TT_AUTH_TTL"))

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "from-dotenv", cfg.AdminPassword)
		assert.Equal(t, 15*time.Minute, cfg.AuthTTL)
	})

	t.Run("missing dotenv from -env panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", filepath.Join(t.TempDir(), "nope.env")}
		require.Panics(t, func() { parseEnv(&Config{}) })
	})

	t.Run("bad duration panics", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Chdir(t.TempDir())
		t.Setenv("TT_AUTH_TTL", "ten minutes")
		require.Panics(t, func() { parseEnv(&Config{}) })
	})

	t.Run("bad bool panics", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Chdir(t.TempDir())
		t.Setenv("TT_SEED", "sometimes")
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
