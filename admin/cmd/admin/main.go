package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/coopfoundry/divvy/admin/internal/admin"
	"github.com/coopfoundry/divvy/api/config"
	"github.com/coopfoundry/divvy/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// Commands
	migrateFlag := flag.Bool("migrate", false, "Run ledger database migrations using goose")
	migrateStatusFlag := flag.Bool("migrate-status", false, "Show ledger database migration status")
	resetDBFlag := flag.Bool("reset-db", false, "Drop all ledger database tables")
	dryRunFlag := flag.Bool("dry-run", false, "Dry run mode - show what would be done without actually executing")
	yesFlag := flag.Bool("yes", false, "Skip confirmation prompt (use with caution)")

	flag.Parse()

	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	pgCfg, err := config.PgConfigFromEnv()
	if err != nil {
		return err
	}

	if *migrateFlag {
		return config.RunMigrations(log, pgCfg.ConnString())
	}

	if *migrateStatusFlag {
		return config.MigrationStatus(log, pgCfg.ConnString())
	}

	if *resetDBFlag {
		return admin.ResetDB(log, pgCfg, *dryRunFlag, *yesFlag)
	}

	flag.Usage()
	return nil
}
