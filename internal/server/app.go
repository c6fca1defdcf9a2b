// Package server wires configuration, storage, services and the web front
// end together and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/clock"
	"github.com/dmitrijs2005/typicaltools/internal/cryptox"
	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/config"
	"github.com/dmitrijs2005/typicaltools/internal/server/filestore"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/typicaltools/internal/server/services"
	"github.com/dmitrijs2005/typicaltools/internal/server/session"
	"github.com/dmitrijs2005/typicaltools/internal/server/web"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	memory *session.MemoryStore
	web    *web.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db}
	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c, logger := app.config, app.logger

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	clk := clock.NewRealClock()

	if c.Seed {
		if _, err := services.NewSeeder(app.db, m, clk, c.AdminPassword, logger).Seed(ctx); err != nil {
			return err
		}
	}

	envelope, err := cryptox.NewEnvelope([]byte(c.FileKey))
	if err != nil {
		return fmt.Errorf("file key: %w", err)
	}

	backend, err := newFileBackend(ctx, c)
	if err != nil {
		return err
	}

	sessions, err := app.newSessionStore(ctx, clk)
	if err != nil {
		return err
	}

	pol := policy.New(c.ModerationWindow, clk)

	app.web, err = web.NewServer(c.HTTPAddr, c.ShutdownTimeout, web.Deps{
		Users:    services.NewUserService(app.db, m, c, logger),
		Catalog:  services.NewCatalogService(app.db, m, pol, clk, logger),
		Comments: services.NewCommentService(app.db, m, pol, clk, logger),
		Files:    filestore.NewStore(backend, envelope, c.ClaimFormPath, logger),
		Sessions: sessions,
		Policy:   pol,
		Logger:   logger,
		Health:   app.db.PingContext,
	})
	return err
}

func newFileBackend(ctx context.Context, c *config.Config) (filestore.Backend, error) {
	switch c.FileBackend {
	case config.FileBackendDisk:
		return filestore.NewDiskBackend(c.UploadDir)
	case config.FileBackendS3:
		return filestore.NewS3Backend(ctx, filestore.S3Options{
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Prefix:       c.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown file backend %q", c.FileBackend)
	}
}

func (app *App) newSessionStore(ctx context.Context, clk clock.Clock) (session.Store, error) {
	if app.config.RedisURL != "" {
		store, client, err := session.NewRedisStoreFromURL(ctx, app.config.RedisURL, app.config.SessionIdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = client
		return store, nil
	}
	app.memory = session.NewMemoryStore(app.config.SessionIdleTimeout, clk)
	return app.memory, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startWebServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.web.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// sweepSessions drops idle in-memory sessions; Redis expires its own keys.
func (app *App) sweepSessions(ctx context.Context) {
	interval := app.config.SessionIdleTimeout
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.memory.Sweep(); n > 0 {
				app.logger.Debug(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startWebServer(ctx, cancelFunc)
	}()

	if app.memory != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.sweepSessions(ctx)
		}()
	}

	wg.Wait()
	app.close(ctx)
	app.logger.Info(ctx, "Stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
}
