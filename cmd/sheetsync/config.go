package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/assinatura-email/sheetsync/internal/config"
	"github.com/assinatura-email/sheetsync/internal/store"
	"github.com/assinatura-email/sheetsync/internal/ui"
)

var (
	configShowFormat string
	configInitOutput string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (password redacted)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Source != "" {
			fmt.Fprintf(os.Stderr, "# from %s\n", cfg.Source)
		}
		return cfg.Redacted().Encode(cmd.OutOrStdout(), configShowFormat)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long: `Ask for the folder, spreadsheet and database settings and write them to a
config file. The format follows the file extension (.yaml, .toml or .json).
Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal(os.Stdin) {
			return errors.New("config init needs an interactive terminal")
		}

		c := *cfg
		c.Sheet.Headers = append([]string(nil), cfg.Sheet.Headers...)
		if err := runConfigForm(&c); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		if err := c.WriteFile(configInitOutput); err != nil {
			return err
		}

		out.Success("wrote %s", configInitOutput)
		return nil
	},
}

// runConfigForm edits c through an interactive form.
func runConfigForm(c *config.Config) error {
	port := strconv.Itoa(c.Database.Port)
	settle := c.Watch.SettleDelay.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Folder to watch").
				Value(&c.Watch.Folder).
				Validate(required),
			huh.NewInput().
				Title("Spreadsheet file name").
				Value(&c.Watch.File).
				Validate(func(s string) error {
					if !strings.HasSuffix(strings.ToLower(s), ".xlsx") {
						return errors.New("must be an .xlsx file")
					}
					return nil
				}),
			huh.NewInput().
				Title("Settle delay before reading").
				Value(&settle).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database driver").
				Options(huh.NewOptions(store.DriverPostgres, store.DriverMySQL, store.DriverSQLite)...).
				Value(&c.Database.Driver),
			huh.NewInput().
				Title("Table").
				Value(&c.Database.Table).
				Validate(func(s string) error {
					if !store.ValidIdentifier(s) {
						return errors.New("not a valid table name")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().Title("Host").Value(&c.Database.Host),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(func(s string) error {
					_, err := strconv.Atoi(s)
					return err
				}),
			huh.NewInput().Title("Database name").Value(&c.Database.Name),
			huh.NewInput().Title("User").Value(&c.Database.User),
			huh.NewInput().
				Title("Password").
				Description("Stored in plain text; prefer SHEETSYNC_DATABASE_PASSWORD.").
				EchoMode(huh.EchoModePassword).
				Value(&c.Database.Password),
		).WithHideFunc(func() bool { return c.Database.Driver == store.DriverSQLite }),
		huh.NewGroup(
			huh.NewInput().
				Title("Database file").
				Value(&c.Database.Path).
				Validate(required),
		).WithHideFunc(func() bool { return c.Database.Driver != store.DriverSQLite }),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reject spreadsheets whose headers do not match?").
				Value(&c.Sheet.StrictHeaders),
			huh.NewConfirm().
				Title("Sync once when watching starts?").
				Value(&c.Watch.SyncOnStart),
		),
	).WithAccessible(noColor)

	if err := form.Run(); err != nil {
		return err
	}

	c.Database.Port, _ = strconv.Atoi(port)
	c.Watch.SettleDelay, _ = time.ParseDuration(settle)
	return nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func init() {
	configShowCmd.Flags().StringVar(&configShowFormat, "format", config.FormatYAML, "output format: yaml, toml or json")
	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", config.FileName+".yaml", "file to write")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
