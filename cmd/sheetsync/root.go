package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/assinatura-email/sheetsync/internal/config"
	"github.com/assinatura-email/sheetsync/internal/logging"
	"github.com/assinatura-email/sheetsync/internal/store"
	"github.com/assinatura-email/sheetsync/internal/ui"
)

var (
	configFile string
	envFile    string
	logLevel   string
	logFile    string
	noColor    bool

	// Set by the root command's PersistentPreRunE.
	cfg    *config.Config
	logger *logging.Logger
	out    *ui.Printer
)

var rootCmd = &cobra.Command{
	Use:   "sheetsync",
	Short: "Sync an employee spreadsheet into a SQL table",
	Long: `sheetsync watches a folder for an Excel spreadsheet of employees and
upserts its rows into a SQL table keyed by badge code (cod_cracha).

The spreadsheet's first four columns are read positionally as
cod_cracha, nm_funcionario, cargo and email. Rows missing any field are
skipped. Every run is a single transaction.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		out = ui.New(os.Stdout, noColor)

		loaded, err := config.Load(config.LoadOptions{
			File:    configFile,
			EnvFile: envFile,
			Overrides: &config.Config{
				Log: config.LogConfig{Level: logLevel, File: logFile},
			},
		})
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		cfg = loaded

		l, err := logging.New(logging.Options{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l.Logger)

		if cfg.Source != "" {
			logger.Debug("loaded config", "file", cfg.Source)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: sheetsync.{yaml,toml,json} in . or ~/.config/sheetsync)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "also write logs to this file, rotated by size")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "db", Title: "Database Commands:"},
	)
}

// openStore opens the configured destination database.
// The caller MUST call Close() on the result.
func openStore() (*store.DB, error) {
	database, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
