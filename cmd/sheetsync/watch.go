package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/assinatura-email/sheetsync/internal/daemon"
	"github.com/assinatura-email/sheetsync/internal/sync"
)

var watchSyncOnStart bool

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Watch the folder and sync whenever the spreadsheet changes",
	Long: `Watch the configured folder and sync the spreadsheet into the database
each time it is saved.

Bursts of file events are debounced (watch.debounce) and runs are
serialized: at most one sync runs at a time and at most one more waits
behind it. A failed sync is logged and watching continues.

Stop with Ctrl+C or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		syncer := sync.New(database, cfg.SyncOptions(), logger.Logger)

		d, err := daemon.New(syncer, &daemon.Config{
			Folder:           cfg.Watch.Folder,
			FileName:         cfg.Watch.File,
			DebounceInterval: cfg.Watch.Debounce,
			SyncOnStart:      cfg.Watch.SyncOnStart || watchSyncOnStart,
			Logger:           logger.Logger,
		})
		if err != nil {
			return err
		}

		out.Title("Watching for spreadsheet changes")
		out.KeyValues(watchFields())
		out.Warn("Press Ctrl+C to stop")

		if err := d.Start(ctx); err != nil {
			return err
		}

		stats := d.Stats()
		logger.Info("watch stopped",
			"events", stats.Events,
			"runs", stats.Runs,
			"coalesced", stats.Coalesced)
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchSyncOnStart, "sync-on-start", false, "sync once immediately, before any change")
	rootCmd.AddCommand(watchCmd)
}
