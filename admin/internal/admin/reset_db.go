package admin

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/coopfoundry/divvy/api/config"
)

// ResetDB drops every table in the public schema of the ledger database,
// including the goose version table, so migrations can be re-applied from
// scratch.
func ResetDB(log *slog.Logger, cfg config.PgConfig, dryRun, skipConfirm bool) error {
	ctx := context.Background()

	pool, err := config.Connect(ctx, log, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	tableQuery := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := pool.Query(ctx, tableQuery)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read tables: %w", err)
	}

	if len(tables) == 0 {
		fmt.Println("No tables found")
		return nil
	}

	fmt.Printf("⚠️  WARNING: This will DROP %d table(s) from database '%s':\n\n", len(tables), cfg.Database)
	for _, table := range tables {
		fmt.Printf("  - %s\n", table)
	}

	if dryRun {
		fmt.Println("\n[DRY RUN] Would drop the above tables")
		return nil
	}

	// Prompt for confirmation unless --yes flag is set
	if !skipConfirm {
		fmt.Printf("\n⚠️  This is a DESTRUCTIVE operation that cannot be undone!\n")
		fmt.Printf("Type 'yes' to confirm: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" {
			fmt.Printf("\nConfirmation failed. Operation cancelled.\n")
			return nil
		}
		fmt.Println()
	}

	fmt.Println("Dropping tables...")
	for _, table := range tables {
		dropQuery := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
		if _, err := pool.Exec(ctx, dropQuery); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		fmt.Printf("  ✓ Dropped %s\n", table)
	}

	fmt.Printf("\nSuccessfully dropped %d table(s)\n", len(tables))
	return nil
}
