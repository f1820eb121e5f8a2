package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/assinatura-email/sheetsync/internal/loadtest"
	"github.com/assinatura-email/sheetsync/internal/store"
	"github.com/assinatura-email/sheetsync/internal/sync"
	"github.com/assinatura-email/sheetsync/internal/ui"
)

var (
	benchRows       int
	benchRuns       int
	benchIncomplete float64
	benchDuplicates float64
	benchWorkers    int
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "sync",
	Short:   "Measure sync performance on a generated spreadsheet",
	Long: `Generate a spreadsheet of synthetic employees, sync it repeatedly into a
scratch sqlite database and report run latency.

With --workers greater than 1 the same rows are also upserted from that
many concurrent connections to check that no badge code is stored twice.
The configured database and spreadsheet are never touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir, err := os.MkdirTemp("", "sheetsync-bench-")
		if err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
		defer os.RemoveAll(dir)

		shape := loadtest.SheetShape{
			Rows:          benchRows,
			IncompletePct: benchIncomplete,
			DuplicatePct:  benchDuplicates,
			Seed:          42,
		}
		path := filepath.Join(dir, cfg.Watch.File)
		info, err := loadtest.GenerateSpreadsheet(path, shape)
		if err != nil {
			return err
		}

		database, err := store.Open(store.Config{
			Driver: store.DriverSQLite,
			Path:   filepath.Join(dir, "bench.db"),
		})
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.InitSchemaContext(ctx); err != nil {
			return err
		}

		out.Title("Sync benchmark")
		out.KeyValues(benchFields(info))

		s := sync.New(database, sync.Options{Path: path}, logger.Logger)
		stats, err := loadtest.RunSyncs(ctx, s, benchRuns)
		if err != nil {
			return err
		}
		stats.WriteStats(cmd.OutOrStdout())

		if benchWorkers > 1 {
			employees, _ := loadtest.GenerateEmployees(shape)
			complete := employees[:0]
			for _, e := range employees {
				if e.Validate() == nil {
					complete = append(complete, e)
				}
			}
			if err := loadtest.VerifyConcurrentUpserts(ctx, database, complete, benchWorkers, 3); err != nil {
				out.Error("concurrent upserts: %v", err)
				return err
			}
			out.Success("concurrent upserts from %d workers left no duplicate rows", benchWorkers)
		}

		if stats.Failures > 0 {
			return fmt.Errorf("%d of %d runs failed", stats.Failures, stats.TotalRuns)
		}
		return nil
	},
}

func benchFields(info loadtest.SheetInfo) []ui.Field {
	return []ui.Field{
		{Key: "Rows", Value: fmt.Sprint(info.Rows)},
		{Key: "Incomplete", Value: fmt.Sprint(info.Incomplete)},
		{Key: "Duplicates", Value: fmt.Sprint(info.Duplicates)},
		{Key: "Expected", Value: fmt.Sprintf("%d distinct badge codes", info.Unique)},
	}
}

func init() {
	benchCmd.Flags().IntVar(&benchRows, "rows", 1000, "data rows in the generated spreadsheet")
	benchCmd.Flags().IntVar(&benchRuns, "runs", 10, "number of sync runs")
	benchCmd.Flags().Float64Var(&benchIncomplete, "incomplete", 0.02, "fraction of rows without an email")
	benchCmd.Flags().Float64Var(&benchDuplicates, "duplicates", 0.01, "fraction of rows repeating a badge code")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 4, "concurrent connections for the duplicate check (1 disables it)")
	rootCmd.AddCommand(benchCmd)
}
