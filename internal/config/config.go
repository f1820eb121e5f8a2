// Package config loads sheetsync configuration.
//
// Values are layered, later sources winning:
//
//  1. built-in defaults (Default)
//  2. a config file: --config, or sheetsync.{yaml,toml,json} in the working
//     directory or $HOME/.config/sheetsync
//  3. a .env file, loaded into the process environment
//  4. SHEETSYNC_* environment variables, e.g. SHEETSYNC_DATABASE_HOST
//  5. command-line overrides
//
// The resulting Config is passed explicitly to every component; nothing
// reads configuration from globals.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/assinatura-email/sheetsync/internal/schema"
	"github.com/assinatura-email/sheetsync/internal/store"
	"github.com/assinatura-email/sheetsync/internal/sync"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SHEETSYNC"

// FileName is the config file base name searched for when no explicit
// file is given.
const FileName = "sheetsync"

// Config is the complete sheetsync configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database" toml:"database" json:"database"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch" toml:"watch" json:"watch"`
	Sheet    SheetConfig    `mapstructure:"sheet" yaml:"sheet" toml:"sheet" json:"sheet"`
	Log      LogConfig      `mapstructure:"log" yaml:"log" toml:"log" json:"log"`

	// Source is the config file that was read, if any.
	Source string `mapstructure:"-" yaml:"-" toml:"-" json:"-"`
}

// DatabaseConfig describes the destination database.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver" toml:"driver" json:"driver"`
	Host     string `mapstructure:"host" yaml:"host" toml:"host" json:"host"`
	Port     int    `mapstructure:"port" yaml:"port" toml:"port" json:"port"`
	User     string `mapstructure:"user" yaml:"user" toml:"user" json:"user"`
	Password string `mapstructure:"password" yaml:"password" toml:"password" json:"password"`
	Name     string `mapstructure:"name" yaml:"name" toml:"name" json:"name"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode" toml:"sslmode" json:"sslmode"`
	Path     string `mapstructure:"path" yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty"`
	Table    string `mapstructure:"table" yaml:"table" toml:"table" json:"table"`
}

// WatchConfig describes the watched spreadsheet and run timing.
type WatchConfig struct {
	Folder      string        `mapstructure:"folder" yaml:"folder" toml:"folder" json:"folder"`
	File        string        `mapstructure:"file" yaml:"file" toml:"file" json:"file"`
	Debounce    time.Duration `mapstructure:"debounce" yaml:"debounce" toml:"debounce" json:"debounce"`
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay" toml:"settle_delay" json:"settle_delay"`
	SyncOnStart bool          `mapstructure:"sync_on_start" yaml:"sync_on_start" toml:"sync_on_start" json:"sync_on_start"`
}

// SheetConfig controls how the worksheet is read.
type SheetConfig struct {
	// Name of the worksheet; empty selects the first one.
	Name          string   `mapstructure:"name" yaml:"name" toml:"name" json:"name"`
	StrictHeaders bool     `mapstructure:"strict_headers" yaml:"strict_headers" toml:"strict_headers" json:"strict_headers"`
	Headers       []string `mapstructure:"headers" yaml:"headers" toml:"headers" json:"headers"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" toml:"level" json:"level"`
	Format     string `mapstructure:"format" yaml:"format" toml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" toml:"max_age_days" json:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:  store.DriverPostgres,
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "assinatura_email",
			SSLMode: "disable",
			Table:   schema.DefaultTable,
		},
		Watch: WatchConfig{
			Folder:      ".",
			File:        "atualiza.xlsx",
			Debounce:    500 * time.Millisecond,
			SettleDelay: sync.DefaultSettleDelay,
		},
		Sheet: SheetConfig{
			Headers: append([]string(nil), schema.Columns...),
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// keys lists every setting so viper binds an environment variable for it.
var keys = []string{
	"database.driver", "database.host", "database.port", "database.user",
	"database.password", "database.name", "database.sslmode", "database.path",
	"database.table",
	"watch.folder", "watch.file", "watch.debounce", "watch.settle_delay",
	"watch.sync_on_start",
	"sheet.name", "sheet.strict_headers", "sheet.headers",
	"log.level", "log.format", "log.file", "log.max_size_mb",
	"log.max_backups", "log.max_age_days",
}

// zeroable are duration keys where an explicit zero is meaningful and must
// not be replaced by the default.
var zeroable = []string{"watch.debounce", "watch.settle_delay"}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is an explicit config file. Missing explicit files are an error.
	File string

	// EnvFile is the dotenv file to load; defaults to ".env". A missing
	// dotenv file is ignored.
	EnvFile string

	// SearchPaths replaces the default config file search path.
	SearchPaths []string

	// Overrides are applied last; non-zero fields win.
	Overrides *Config
}

// Load reads the configuration. The result is not validated; call Validate.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(FileName)
		paths := opts.SearchPaths
		if paths == nil {
			paths = defaultSearchPaths()
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	def := Default()
	if err := mergo.Merge(cfg, def); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	for _, key := range zeroable {
		if v.IsSet(key) && v.GetDuration(key) == 0 {
			switch key {
			case "watch.debounce":
				cfg.Watch.Debounce = 0
			case "watch.settle_delay":
				cfg.Watch.SettleDelay = 0
			}
		}
	}

	if opts.Overrides != nil {
		if err := mergo.Merge(cfg, opts.Overrides, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	return cfg, nil
}

func defaultSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", FileName))
	}
	return paths
}

// Validate checks the configuration for values no component could use.
func (c *Config) Validate() error {
	var errs []error

	if !store.SupportedDriver(c.Database.Driver) {
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if strings.EqualFold(c.Database.Driver, store.DriverSQLite) && c.Database.Path == "" {
		errs = append(errs, errors.New("database.path: required for the sqlite driver"))
	}
	if !store.ValidIdentifier(c.Database.Table) {
		errs = append(errs, fmt.Errorf("database.table: invalid table name %q", c.Database.Table))
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port: out of range: %d", c.Database.Port))
	}

	if c.Watch.Folder == "" {
		errs = append(errs, errors.New("watch.folder: required"))
	}
	if c.Watch.File == "" || filepath.Base(c.Watch.File) != c.Watch.File {
		errs = append(errs, fmt.Errorf("watch.file: must be a file name, got %q", c.Watch.File))
	} else if !strings.EqualFold(filepath.Ext(c.Watch.File), ".xlsx") {
		errs = append(errs, fmt.Errorf("watch.file: must be an .xlsx file, got %q", c.Watch.File))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch.debounce: cannot be negative"))
	}
	if c.Watch.SettleDelay < 0 {
		errs = append(errs, errors.New("watch.settle_delay: cannot be negative"))
	}

	if len(c.Sheet.Headers) != 0 && len(c.Sheet.Headers) != len(schema.Columns) {
		errs = append(errs, fmt.Errorf("sheet.headers: need %d headers, got %d", len(schema.Columns), len(c.Sheet.Headers)))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SpreadsheetPath is the full path of the watched spreadsheet.
func (c *Config) SpreadsheetPath() string {
	return filepath.Join(c.Watch.Folder, c.Watch.File)
}

// StoreConfig returns the settings for store.Open.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:   strings.ToLower(c.Database.Driver),
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Name:     c.Database.Name,
		SSLMode:  c.Database.SSLMode,
		Path:     c.Database.Path,
		Table:    c.Database.Table,
	}
}

// SyncOptions returns the settings for sync.New.
func (c *Config) SyncOptions() sync.Options {
	return sync.Options{
		Path:            c.SpreadsheetPath(),
		SheetName:       c.Sheet.Name,
		SettleDelay:     c.Watch.SettleDelay,
		StrictHeaders:   c.Sheet.StrictHeaders,
		ExpectedHeaders: c.Sheet.Headers,
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Sheet.Headers = append([]string(nil), c.Sheet.Headers...)
	if out.Database.Password != "" {
		out.Database.Password = "********"
	}
	return &out
}
