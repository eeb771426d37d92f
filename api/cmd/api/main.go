package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/coopfoundry/divvy/api/config"
	"github.com/coopfoundry/divvy/api/handlers"
	"github.com/coopfoundry/divvy/api/metrics"
	"github.com/coopfoundry/divvy/ledger"
	"github.com/coopfoundry/divvy/utils/pkg/logger"
	"github.com/coopfoundry/divvy/utils/pkg/retry"
)

const (
	defaultListenAddr  = "0.0.0.0:8080"
	defaultMetricsAddr = "0.0.0.0:9090"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "Address to listen on for the HTTP API")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics (empty to disable)")
	migrateFlag := flag.Bool("migrate", false, "Run database migrations on startup")
	ownerFlag := flag.String("owner", "", "Initial engine owner identity (or set DIVVY_OWNER env var)")

	// Collaborator service base URLs
	oracleURLFlag := flag.String("oracle-url", "", "Revenue oracle base URL (or set ORACLE_URL env var)")
	membershipURLFlag := flag.String("membership-url", "", "Membership registry base URL (or set MEMBERSHIP_URL env var)")
	contributionsURLFlag := flag.String("contributions-url", "", "Contribution tracker base URL (or set CONTRIBUTIONS_URL env var)")
	paymentsURLFlag := flag.String("payments-url", "", "Settlement service base URL (or set PAYMENTS_URL env var)")

	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "Maximum time to wait for graceful shutdown")

	flag.Parse()

	// Best effort; the environment may carry everything already.
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	if env := os.Getenv("DIVVY_OWNER"); env != "" {
		*ownerFlag = env
	}
	if env := os.Getenv("ORACLE_URL"); env != "" {
		*oracleURLFlag = env
	}
	if env := os.Getenv("MEMBERSHIP_URL"); env != "" {
		*membershipURLFlag = env
	}
	if env := os.Getenv("CONTRIBUTIONS_URL"); env != "" {
		*contributionsURLFlag = env
	}
	if env := os.Getenv("PAYMENTS_URL"); env != "" {
		*paymentsURLFlag = env
	}

	if *ownerFlag == "" {
		return fmt.Errorf("--owner (or DIVVY_OWNER) is required")
	}
	if *oracleURLFlag == "" {
		return fmt.Errorf("--oracle-url (or ORACLE_URL) is required")
	}
	if *membershipURLFlag == "" {
		return fmt.Errorf("--membership-url (or MEMBERSHIP_URL) is required")
	}
	if *contributionsURLFlag == "" {
		return fmt.Errorf("--contributions-url (or CONTRIBUTIONS_URL) is required")
	}
	if *paymentsURLFlag == "" {
		return fmt.Errorf("--payments-url (or PAYMENTS_URL) is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgCfg, err := config.PgConfigFromEnv()
	if err != nil {
		return err
	}

	if *migrateFlag {
		if err := config.RunMigrations(log, pgCfg.ConnString()); err != nil {
			return err
		}
	}

	// The database may still be coming up alongside us.
	var pool *pgxpool.Pool
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		var connErr error
		pool, connErr = config.Connect(ctx, log, pgCfg)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	collab := struct {
		oracle        *ledger.CollabClient
		membership    *ledger.CollabClient
		contributions *ledger.CollabClient
		payments      *ledger.CollabClient
	}{
		oracle:        ledger.NewCollabClient(*oracleURLFlag),
		membership:    ledger.NewCollabClient(*membershipURLFlag),
		contributions: ledger.NewCollabClient(*contributionsURLFlag),
		payments:      ledger.NewCollabClient(*paymentsURLFlag),
	}

	engine, err := ledger.New(ledger.Config{
		Logger:        log,
		Pool:          pool,
		Oracle:        collab.oracle,
		Membership:    collab.membership,
		Contributions: collab.contributions,
		Transfer:      collab.payments,
		Owner:         *ownerFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	if err := engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap engine: %w", err)
	}

	server := handlers.NewServer(log, engine)
	httpServer := &http.Server{
		Addr:    *listenAddrFlag,
		Handler: server.Router(),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("API server listening", "addr", *listenAddrFlag)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(handlers.Version, handlers.Commit, handlers.Date).Set(1)
		g.Go(func() error {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				return fmt.Errorf("metrics listener: %w", err)
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsServer := &http.Server{Handler: mux}
			go func() {
				<-gCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsServer.Shutdown(shutdownCtx)
			}()
			if err := metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutdown signal received, stopping API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeoutFlag)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("ledger service stopped")
	return nil
}
