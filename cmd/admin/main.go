// Command admin runs operator tasks against the TypicalTools database:
// migrations, starter data and account creation.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/typicaltools/internal/admincli"
	"github.com/dmitrijs2005/typicaltools/internal/clock"
	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/config"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/typicaltools/internal/server/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, admincli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 || !admincli.NeedsDatabase(args[0]) {
		return admincli.Run(ctx, args, admincli.Deps{Out: os.Stdout})
	}

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()

	return admincli.Run(ctx, args, admincli.Deps{
		Migrate:  func(ctx context.Context) error { return m.RunMigrations(ctx, db) },
		Seed:     services.NewSeeder(db, m, clock.NewRealClock(), cfg.AdminPassword, logger).Seed,
		Accounts: services.NewUserService(db, m, cfg, logger),
		In:       bufio.NewReader(os.Stdin),
		Out:      os.Stdout,
	})
}
