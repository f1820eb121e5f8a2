package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/assinatura-email/sheetsync/internal/sync"
)

var syncSettle bool

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Sync the spreadsheet once now",
	Long: `Read the spreadsheet and upsert its rows into the database once.

The settle delay is skipped unless --settle is given. Exits with status 1
when the run does not succeed; an empty spreadsheet is not a failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		opts := cfg.SyncOptions()
		if !syncSettle {
			opts.SettleDelay = 0
		}

		res := sync.New(database, opts, logger.Logger).Run(ctx)
		out.Result(res)

		if !res.OK() {
			return fmt.Errorf("sync failed: %s", res.Outcome)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncSettle, "settle", false, "wait watch.settle_delay before reading")
	rootCmd.AddCommand(syncCmd)
}
