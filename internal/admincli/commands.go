package admincli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/flagx"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

var (
	ErrUsage            = errors.New("usage error")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrEmptyPassword    = errors.New("password must not be empty")
)

// AccountCreator is the part of the user service the CLI needs.
type AccountCreator interface {
	CreateAccount(ctx context.Context, username, password string, role models.Role) (*models.Account, error)
}

// Deps carries everything a command may touch. Commands that need a
// missing dependency fail with ErrUsage.
type Deps struct {
	Migrate  func(ctx context.Context) error
	Seed     func(ctx context.Context) (bool, error)
	Accounts AccountCreator
	In       *bufio.Reader
	Out      io.Writer
}

const usage = `Usage: admin <command> [flags]

Commands:
  migrate                                  apply database migrations
  seed                                     apply migrations and load starter data
  create-user -u <name> [-role ADMIN|GUEST] [-y]
                                           create an account (password is prompted)
  help                                     show this message

Connection flags (-d, -c, -env) are read the same way the server reads them.
`

// NeedsDatabase reports whether cmd is a command that talks to the database.
// Anything else can be handed to Run with empty Deps.
func NeedsDatabase(cmd string) bool {
	switch cmd {
	case "migrate", "seed", "create-user":
		return true
	}
	return false
}

// Run dispatches args[0] to its command.
func Run(ctx context.Context, args []string, d Deps) error {
	if d.Out == nil {
		d.Out = io.Discard
	}
	if len(args) == 0 {
		fmt.Fprint(d.Out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, d)
	case "seed":
		return runSeed(ctx, d)
	case "create-user":
		return runCreateUser(ctx, args[1:], d)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(d.Out, usage)
		return nil
	default:
		fmt.Fprintf(d.Out, "unknown command %q\n\n%s", args[0], usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func runMigrate(ctx context.Context, d Deps) error {
	if d.Migrate == nil {
		return fmt.Errorf("%w: migrate is not configured", ErrUsage)
	}
	if err := d.Migrate(ctx); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	fmt.Fprintln(d.Out, "migrations applied")
	return nil
}

func runSeed(ctx context.Context, d Deps) error {
	if d.Seed == nil {
		return fmt.Errorf("%w: seed is not configured", ErrUsage)
	}
	if err := runMigrate(ctx, d); err != nil {
		return err
	}
	seeded, err := d.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed error: %w", err)
	}
	if seeded {
		fmt.Fprintln(d.Out, "starter data loaded")
	} else {
		fmt.Fprintln(d.Out, "catalog is not empty, nothing seeded")
	}
	return nil
}

// createUserFlags are the flags create-user owns. Connection flags given on
// the same command line are skipped.
var createUserFlags = []string{"-u", "-role", "-y"}

func runCreateUser(ctx context.Context, args []string, d Deps) error {
	if d.Accounts == nil || d.In == nil {
		return fmt.Errorf("%w: create-user is not configured", ErrUsage)
	}

	var (
		username string
		roleName string
		yes      bool
	)
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(d.Out)
	fs.StringVar(&username, "u", "", "username")
	fs.StringVar(&roleName, "role", string(models.RoleGuest), "role (ADMIN or GUEST)")
	fs.BoolVar(&yes, "y", false, "skip the confirmation prompt")
	if err := fs.Parse(flagx.FilterArgs(args, createUserFlags)); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	role, err := models.ParseRole(strings.ToUpper(roleName))
	if err != nil {
		return err
	}

	if username == "" {
		username, err = GetSimpleText(d.In, "Username", d.Out)
		if err != nil {
			return err
		}
		if username == "" {
			return fmt.Errorf("%w: username is required", common.ErrValidation)
		}
	}

	password, err := GetNewPassword(d.Out)
	if err != nil {
		return err
	}

	if !yes {
		ok, err := Confirm(d.In, fmt.Sprintf("Create %s account %q?", role, username), d.Out)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(d.Out, "aborted")
			return nil
		}
	}

	account, err := d.Accounts.CreateAccount(ctx, username, password, role)
	if err != nil {
		return fmt.Errorf("create user %q: %w", username, err)
	}
	fmt.Fprintf(d.Out, "created %s account %q\n", account.Role, account.Username)
	return nil
}
