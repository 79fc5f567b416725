// Package cli implements the dance command: scoring recorded or watched
// live streams against a level, calibrating timing offsets, comparing
// single poses and serving stored results.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/config"
	"github.com/banshee-data/dance.report/internal/db"
	"github.com/banshee-data/dance.report/internal/monitoring"
	"github.com/banshee-data/dance.report/internal/version"
)

// Environment variables read for flag defaults.
const (
	EnvConfig   = "DANCE_CONFIG"
	EnvDB       = "DANCE_DB"
	EnvLogLevel = "DANCE_LOG_LEVEL"
)

const defaultDBPath = "dance.db"

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration and built the logger.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg *config.TuningConfig
	log *zap.Logger
}

// Main loads .env, runs the root command and exits non-zero on error.
func Main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "dance",
		Short:         "Score live dance poses against a recorded level",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			cmd.SetContext(monitoring.ContextWithLogger(cmd.Context(), a.log))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", os.Getenv(EnvConfig), "Tuning config file (.json or .toml)")
	pf.StringVar(&a.dbPath, "db", envOr(EnvDB, defaultDBPath), "Results database path")
	pf.StringVar(&a.logLevel, "log-level", envOr(EnvLogLevel, "info"), "Log level (debug, info, warn, error)")

	root.AddCommand(
		newScoreCommand(a),
		newWatchCommand(a),
		newCalibrateCommand(a),
		newOffsetCommand(a),
		newCompareCommand(a),
		newPoseCommand(a),
		newServeCommand(a),
		newMigrateCommand(a),
		newVersionCommand(),
	)
	return root
}

func (a *app) setup() error {
	log, err := monitoring.NewLogger(a.logLevel)
	if err != nil {
		return err
	}
	a.log = log
	monitoring.UseZap(log)

	if a.configPath == "" {
		a.cfg = config.EmptyTuningConfig()
		return nil
	}
	cfg, err := config.LoadTuningConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	log.Debug("loaded tuning config", zap.String("path", a.configPath))
	return nil
}

// openDB opens the results database with migrations applied.
func (a *app) openDB() (*db.DB, error) {
	if a.dbPath == "" {
		return nil, errors.New("--db is required")
	}
	return db.NewDB(a.dbPath, a.log.Named("db"))
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
