// Command price-service-cli is the operator CLI (spec §2 AMBIENT STACK):
// trigger a merchant sync, inspect a feed URL, or run one through the
// Normalizer ad hoc, without waiting for the server's scheduled pass.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/price-service/config"
	"github.com/kosarica/price-service/internal/database"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "price-service",
	Short:             "Operator CLI for the price comparison service",
	PersistentPreRunE: persistentPreRun,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config/config.yaml)")
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		loaded = &config.Config{}
	}
	cfg = loaded
}

// persistentPreRun initializes logging for every subcommand, and the
// database pool only for subcommands that actually talk to the Store
// (ingest); discover/parse exercise the Fetcher/Normalizer directly
// against a feed URL and need no database connection.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	initLogger()

	if cmd.Name() == "ingest" {
		return initDatabase(cmd.Context())
	}
	return nil
}

func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.Logging.NoColor}
	if cfg.Logging.Format == "json" {
		output = os.Stdout
	}

	logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func initDatabase(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	return database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	)
}

func main() {
	Execute()
}
