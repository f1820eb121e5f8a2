package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Encode.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// Settings returns the configuration as nested maps keyed like the config
// file, with durations rendered as strings ("500ms") so the output can be
// read back by Load.
func (c *Config) Settings() map[string]any {
	db := map[string]any{
		"driver":   c.Database.Driver,
		"host":     c.Database.Host,
		"port":     c.Database.Port,
		"user":     c.Database.User,
		"password": c.Database.Password,
		"name":     c.Database.Name,
		"sslmode":  c.Database.SSLMode,
		"table":    c.Database.Table,
	}
	if c.Database.Path != "" {
		db["path"] = c.Database.Path
	}

	headers := c.Sheet.Headers
	if headers == nil {
		headers = []string{}
	}

	logs := map[string]any{
		"level":        c.Log.Level,
		"format":       c.Log.Format,
		"max_size_mb":  c.Log.MaxSizeMB,
		"max_backups":  c.Log.MaxBackups,
		"max_age_days": c.Log.MaxAgeDays,
	}
	if c.Log.File != "" {
		logs["file"] = c.Log.File
	}

	return map[string]any{
		"database": db,
		"watch": map[string]any{
			"folder":        c.Watch.Folder,
			"file":          c.Watch.File,
			"debounce":      c.Watch.Debounce.String(),
			"settle_delay":  c.Watch.SettleDelay.String(),
			"sync_on_start": c.Watch.SyncOnStart,
		},
		"sheet": map[string]any{
			"name":           c.Sheet.Name,
			"strict_headers": c.Sheet.StrictHeaders,
			"headers":        headers,
		},
		"log": logs,
	}
}

// Encode writes the configuration to w in the given format.
func (c *Config) Encode(w io.Writer, format string) error {
	settings := c.Settings()

	switch format {
	case FormatYAML, "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(settings); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(settings); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(settings); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want yaml, toml or json)", format)
	}
}

// WriteFile writes the configuration to path, choosing the format from the
// file extension. Existing files are not overwritten.
func (c *Config) WriteFile(path string) error {
	format := FormatYAML
	switch filepath.Ext(path) {
	case ".toml":
		format = FormatTOML
	case ".json":
		format = FormatJSON
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if err := c.Encode(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
