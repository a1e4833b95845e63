package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/livefir/livebind/internal/datasource"
)

// Migrate manages the goose migrations of a SQLite data source
func Migrate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("sqlite", "", "SQLite database")
	dir := fs.String("migrations", "migrations", "migrations directory")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: command required: up, down, version, or create <name>", ErrUsage)
	}
	command := fs.Arg(0)

	if command == "create" {
		if fs.NArg() < 2 {
			return fmt.Errorf("%w: migration name required: livebind migrate create <name>", ErrUsage)
		}
		path, err := datasource.CreateMigration(*dir, fs.Arg(1))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Created migration: %s\n", path)
		return nil
	}

	if *dbPath == "" {
		return fmt.Errorf("%w: -sqlite is required", ErrUsage)
	}
	db, err := datasource.OpenSQLite(*dbPath, datasource.WithMigrations(*dir))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	switch command {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, okStyle.Render("All migrations applied"))
	case "down":
		if err := db.Rollback(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, okStyle.Render("Rolled back the last migration"))
	case "version":
		version, err := db.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "version %d\n", version)
	default:
		return fmt.Errorf("%w: unknown command %s (expected: up, down, version, create)", ErrUsage, command)
	}
	return nil
}
