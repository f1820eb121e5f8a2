package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/assinatura-email/sheetsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show spreadsheet and destination table status",
	Long: `Display the watched spreadsheet and the destination table.

Shows:
  - Spreadsheet location, size and modification time
  - Database driver and table
  - Number of rows in the table, or why it cannot be counted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		out.Title("Spreadsheet")
		path := cfg.SpreadsheetPath()
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			out.KeyValues([]ui.Field{{Key: "Location", Value: path}})
			out.Warn("spreadsheet not found")
		case err != nil:
			return fmt.Errorf("failed to stat spreadsheet: %w", err)
		default:
			out.KeyValues([]ui.Field{
				{Key: "Location", Value: path},
				{Key: "Size", Value: formatSize(info.Size())},
				{Key: "Modified", Value: info.ModTime().Format("2006-01-02 15:04:05")},
			})
		}

		fmt.Fprintln(cmd.OutOrStdout())
		out.Title("Database")

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		fields := []ui.Field{
			{Key: "Driver", Value: database.Driver()},
			{Key: "Table", Value: database.Table()},
		}

		conn, err := database.Conn(ctx)
		if err != nil {
			out.KeyValues(fields)
			out.Error("cannot connect: %v", err)
			return nil
		}
		defer conn.Close()

		exists, err := conn.TableExists(ctx)
		if err != nil {
			out.KeyValues(fields)
			out.Error("cannot check table: %v", err)
			return nil
		}
		if !exists {
			out.KeyValues(fields)
			out.Warn("table %q does not exist; run 'sheetsync migrate up' or 'sheetsync init-schema'", database.Table())
			return nil
		}

		count, err := database.CountRowsContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to count rows: %w", err)
		}
		fields = append(fields, ui.Field{Key: "Rows", Value: strconv.Itoa(count)})
		out.KeyValues(fields)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// watchFields describes what the daemon watches.
func watchFields() []ui.Field {
	return []ui.Field{
		{Key: "Folder", Value: cfg.Watch.Folder},
		{Key: "File", Value: cfg.Watch.File},
		{Key: "Database", Value: cfg.Database.Driver + " / " + cfg.Database.Table},
		{Key: "Debounce", Value: cfg.Watch.Debounce.String()},
		{Key: "Settle", Value: cfg.Watch.SettleDelay.String()},
	}
}

func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
