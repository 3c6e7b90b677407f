/*
main.go - Application entry point

PURPOSE:
  Starts the optical shop engine server. Handles configuration,
  dependency injection, and graceful shutdown.

COMMANDS:
  serve     Start the HTTP server
  migrate   Create the SQLite schema and exit
  tables    Print the active limit tables as JSON
  version   Print the build version

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, then environment)
  2. Build the limit tables (defaults, TABLES_FILE, IPD_POLICY)
  3. Open the store (SQLite or in-memory)
  4. Create services and the API handler
  5. Start server with graceful shutdown

ENVIRONMENT:
  PORT, ENV, STORE, DATABASE_PATH, TABLES_FILE, IPD_POLICY,
  CORS_ORIGINS, LOG_LEVEL. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/warp/optical-engine/api"
	"github.com/warp/optical-engine/billing"
	"github.com/warp/optical-engine/config"
	"github.com/warp/optical-engine/factory"
	"github.com/warp/optical-engine/prescription"
	"github.com/warp/optical-engine/store/memory"
	"github.com/warp/optical-engine/store/sqlite"
)

var version = "dev"

// store is what both services need from persistence.
type store interface {
	prescription.Store
	billing.Store
}

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "optical-server",
		Short:         "Optical shop prescription and billing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before the environment")

	rootCmd.AddCommand(serveCmd(&envFile))
	rootCmd.AddCommand(migrateCmd(&envFile))
	rootCmd.AddCommand(tablesCmd(&envFile))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg, os.Stdout))
		},
	}
}

func migrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQLite schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			if cfg.Store != config.StoreSQLite {
				return fmt.Errorf("migrate needs STORE=sqlite, got %q", cfg.Store)
			}
			// New migrates on open.
			s, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready in %s\n", cfg.DatabasePath)
			return nil
		},
	}
}

func tablesCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Print the active limit tables as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			tables, err := loadTables(cfg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(factory.NewTablesFactory().ToJSON(tables))
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// =============================================================================
// WIRING
// =============================================================================

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadTables starts from the defaults, applies TABLES_FILE and then
// IPD_POLICY.
func loadTables(cfg *config.Config) (prescription.Tables, error) {
	tables := prescription.DefaultTables()
	if cfg.TablesFile != "" {
		var err error
		if tables, err = factory.NewTablesFactory().LoadFile(cfg.TablesFile); err != nil {
			return prescription.Tables{}, err
		}
	}
	if cfg.IPDPolicy != "" {
		tables.IPDPolicy = prescription.IPDPolicy(cfg.IPDPolicy)
	}
	return tables, nil
}

func openStore(cfg *config.Config) (store, func() error, error) {
	if cfg.Store == config.StoreMemory {
		return memory.New(), func() error { return nil }, nil
	}
	s, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return s, s.Close, nil
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	tables, err := loadTables(cfg)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info().Str("store", cfg.Store).Str("path", cfg.DatabasePath).Msg("store ready")

	handler := api.NewHandler(
		prescription.NewService(st, tables, logger),
		billing.NewService(st, logger),
		logger,
	)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("ipd_policy", string(tables.IPDPolicy)).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
