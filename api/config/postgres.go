package config

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var EmbedMigrations embed.FS

// PgConfig holds the PostgreSQL configuration.
type PgConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// PgConfigFromEnv reads the PostgreSQL configuration from the environment.
func PgConfigFromEnv() (PgConfig, error) {
	cfg := PgConfig{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		Database: os.Getenv("POSTGRES_DB"),
		Username: os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.Database == "" {
		return cfg, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.Username == "" {
		return cfg, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.Password == "" {
		return cfg, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	return cfg, nil
}

// ConnString returns the PostgreSQL connection string.
func (c PgConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect creates the PostgreSQL connection pool and verifies connectivity.
func Connect(ctx context.Context, log *slog.Logger, cfg PgConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("connected to PostgreSQL",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Database, "username", cfg.Username)
	return pool, nil
}

// RunMigrations applies the embedded ledger schema migrations using goose.
func RunMigrations(log *slog.Logger, connStr string) error {
	log.Info("running PostgreSQL migrations")

	goose.SetBaseFS(EmbedMigrations)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("PostgreSQL migrations completed")
	return nil
}

// MigrationStatus prints the status of the embedded migrations using goose.
func MigrationStatus(log *slog.Logger, connStr string) error {
	goose.SetBaseFS(EmbedMigrations)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database for migration status: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Status(db, "migrations"); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}
