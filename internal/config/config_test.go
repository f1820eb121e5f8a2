package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/assinatura-email/sheetsync/internal/schema"
)

// isolated returns LoadOptions that read nothing from the working
// directory, the home directory or a stray .env file.
func isolated(t *testing.T) LoadOptions {
	t.Helper()
	dir := t.TempDir()
	return LoadOptions{
		EnvFile:     filepath.Join(dir, "missing.env"),
		SearchPaths: []string{dir},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(isolated(t))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := Default()
	if cfg.Database != want.Database {
		t.Errorf("Database = %+v, want %+v", cfg.Database, want.Database)
	}
	if cfg.Watch != want.Watch {
		t.Errorf("Watch = %+v, want %+v", cfg.Watch, want.Watch)
	}
	if cfg.Log != want.Log {
		t.Errorf("Log = %+v, want %+v", cfg.Log, want.Log)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults failed: %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	opts := isolated(t)
	path := filepath.Join(opts.SearchPaths[0], "sheetsync.yaml")
	writeFile(t, path, `
database:
  host: db.internal
  port: 6543
  table: funcionarios
watch:
  folder: /srv/planilhas
  debounce: 1s
sheet:
  strict_headers: true
`)

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 6543 {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.Table != "funcionarios" {
		t.Errorf("Table = %q, want funcionarios", cfg.Database.Table)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Debounce = %v, want 1s", cfg.Watch.Debounce)
	}
	// Unset values keep their defaults
	if cfg.Watch.File != "atualiza.xlsx" {
		t.Errorf("File = %q, want atualiza.xlsx", cfg.Watch.File)
	}
	if cfg.Watch.SettleDelay != 2*time.Second {
		t.Errorf("SettleDelay = %v, want 2s", cfg.Watch.SettleDelay)
	}
	if !cfg.Sheet.StrictHeaders {
		t.Error("StrictHeaders should be true")
	}
	if len(cfg.Sheet.Headers) != len(schema.Columns) {
		t.Errorf("Headers = %v, want defaults", cfg.Sheet.Headers)
	}
}

func TestLoad_TOMLExplicitFile(t *testing.T) {
	opts := isolated(t)
	opts.File = filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, opts.File, `
[database]
driver = "sqlite"
path = "/tmp/sheetsync.db"

[watch]
settle_delay = "0s"
`)

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/sheetsync.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	// An explicit zero is kept
	if cfg.Watch.SettleDelay != 0 {
		t.Errorf("SettleDelay = %v, want 0", cfg.Watch.SettleDelay)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Watch.Debounce)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	opts := isolated(t)
	opts.File = filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := Load(opts); err == nil {
		t.Error("Load() should fail for a missing explicit config file")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	opts := isolated(t)
	writeFile(t, filepath.Join(opts.SearchPaths[0], "sheetsync.yaml"), `
database:
  host: from-file
`)
	t.Setenv("SHEETSYNC_DATABASE_HOST", "from-env")
	t.Setenv("SHEETSYNC_WATCH_DEBOUNCE", "250ms")
	t.Setenv("SHEETSYNC_SHEET_HEADERS", "badge,name,role,mail")

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Host != "from-env" {
		t.Errorf("Host = %q, want from-env", cfg.Database.Host)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v, want 250ms", cfg.Watch.Debounce)
	}
	want := []string{"badge", "name", "role", "mail"}
	if strings.Join(cfg.Sheet.Headers, ",") != strings.Join(want, ",") {
		t.Errorf("Headers = %v, want %v", cfg.Sheet.Headers, want)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	opts := isolated(t)
	opts.EnvFile = filepath.Join(t.TempDir(), ".env")
	writeFile(t, opts.EnvFile, "SHEETSYNC_DATABASE_PASSWORD=s3cret\n")

	// Register the variable for restoration, then clear it so the dotenv
	// file can set it.
	t.Setenv("SHEETSYNC_DATABASE_PASSWORD", "")
	os.Unsetenv("SHEETSYNC_DATABASE_PASSWORD")

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("Password = %q, want s3cret", cfg.Database.Password)
	}
}

func TestLoad_Overrides(t *testing.T) {
	opts := isolated(t)
	opts.Overrides = &Config{Log: LogConfig{Level: "debug", File: "/var/log/sheetsync.log"}}

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.File != "/var/log/sheetsync.log" {
		t.Errorf("File = %q", cfg.Log.File)
	}
	// Zero override fields leave the loaded value alone
	if cfg.Log.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Log.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite" }, "database.path"},
		{"sqlite with path", func(c *Config) {
			c.Database.Driver = "sqlite"
			c.Database.Path = "x.db"
		}, ""},
		{"bad table", func(c *Config) { c.Database.Table = "users; DROP TABLE x" }, "database.table"},
		{"bad port", func(c *Config) { c.Database.Port = 70000 }, "database.port"},
		{"no folder", func(c *Config) { c.Watch.Folder = "" }, "watch.folder"},
		{"path as file", func(c *Config) { c.Watch.File = "dir/atualiza.xlsx" }, "watch.file"},
		{"not xlsx", func(c *Config) { c.Watch.File = "atualiza.csv" }, "watch.file"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"negative settle", func(c *Config) { c.Watch.SettleDelay = -time.Second }, "watch.settle_delay"},
		{"header count", func(c *Config) { c.Sheet.Headers = []string{"a"} }, "sheet.headers"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDerivedSettings(t *testing.T) {
	cfg := Default()
	cfg.Watch.Folder = "/data"
	cfg.Database.Driver = "Postgres"
	cfg.Database.Password = "secret"

	if got := cfg.SpreadsheetPath(); got != filepath.Join("/data", "atualiza.xlsx") {
		t.Errorf("SpreadsheetPath() = %q", got)
	}

	sc := cfg.StoreConfig()
	if sc.Driver != "postgres" || sc.Table != schema.DefaultTable {
		t.Errorf("StoreConfig() = %+v", sc)
	}

	so := cfg.SyncOptions()
	if so.Path != cfg.SpreadsheetPath() || so.SettleDelay != 2*time.Second {
		t.Errorf("SyncOptions() = %+v", so)
	}

	red := cfg.Redacted()
	if red.Database.Password == "secret" {
		t.Error("Redacted() should hide the password")
	}
	if cfg.Database.Password != "secret" {
		t.Error("Redacted() should not modify the original")
	}
}

func TestEncode(t *testing.T) {
	cfg := Default()

	for _, format := range []string{FormatYAML, FormatTOML, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := cfg.Encode(&buf, format); err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}
			out := buf.String()
			for _, want := range []string{"assinatura_email", "atualiza.xlsx", "500ms"} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}

	if err := cfg.Encode(&bytes.Buffer{}, "xml"); err == nil {
		t.Error("Encode() should reject unknown formats")
	}
}

// TestWriteFile_RoundTrip verifies that a written file loads back unchanged.
func TestWriteFile_RoundTrip(t *testing.T) {
	for _, ext := range []string{".yaml", ".toml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			cfg := Default()
			cfg.Database.Host = "db.example"
			cfg.Watch.Debounce = 750 * time.Millisecond
			cfg.Watch.SyncOnStart = true

			path := filepath.Join(t.TempDir(), "conf", "sheetsync"+ext)
			if err := cfg.WriteFile(path); err != nil {
				t.Fatalf("WriteFile() failed: %v", err)
			}

			// Existing files are not overwritten
			if err := cfg.WriteFile(path); err == nil {
				t.Error("Second WriteFile() should fail")
			}

			opts := isolated(t)
			opts.File = path
			got, err := Load(opts)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if got.Database.Host != "db.example" {
				t.Errorf("Host = %q", got.Database.Host)
			}
			if got.Watch.Debounce != 750*time.Millisecond {
				t.Errorf("Debounce = %v", got.Watch.Debounce)
			}
			if !got.Watch.SyncOnStart {
				t.Error("SyncOnStart should be true")
			}
		})
	}
}
