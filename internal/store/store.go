// Package store writes employee rows to the destination SQL table.
//
// Three engines are supported through database/sql:
//
//   - postgres (github.com/lib/pq), the production target
//   - mysql (github.com/go-sql-driver/mysql)
//   - sqlite (github.com/ncruces/go-sqlite3, embedded, no server needed)
//
// The engine only changes the SQL text; every engine provides an atomic
// insert-or-update keyed by cod_cracha, so duplicate or concurrent syncs of
// the same badge code never create duplicate rows.
//
// A DB is opened once per process. Each sync run acquires a dedicated Conn
// from it and releases the Conn when the run ends:
//
//	database, err := store.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//
//	conn, err := database.Conn(ctx)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	if ok, err := conn.TableExists(ctx); err != nil || !ok {
//	    ...
//	}
//	n, err := conn.UpsertEmployees(ctx, employees)
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/assinatura-email/sheetsync/internal/schema"
)

// Config describes how to reach the destination database.
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	// Path is the database file for the sqlite driver.
	Path string

	// Table is the destination table; defaults to schema.DefaultTable.
	Table string
}

// DB is a connection pool bound to one destination table.
type DB struct {
	conn    *sql.DB
	dialect *dialect
	table   string
	cfg     Config
}

// Open prepares a connection pool. No connection is made until first use,
// so an unreachable server is reported by the first sync rather than here.
//
// The caller MUST call Close() when done.
func Open(cfg Config) (*DB, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if cfg.Table == "" {
		cfg.Table = schema.DefaultTable
	}
	if !ValidIdentifier(cfg.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, cfg.Table)
	}

	if d.name == DriverSQLite {
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite driver requires a database path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open(d.driverName, d.dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		conn:    conn,
		dialect: d,
		table:   cfg.Table,
		cfg:     cfg,
	}, nil
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.dialect.name
}

// Table returns the destination table name.
func (db *DB) Table() string {
	return db.table
}

// MigrateURL returns the database URL in the form golang-migrate expects.
func (db *DB) MigrateURL() (string, error) {
	return db.dialect.migrateURL(db.cfg)
}

// Ping verifies the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the destination table if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the destination table with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, db.dialect.createTableQuery(db.table)); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// CountRows returns the number of rows in the destination table.
func (db *DB) CountRows() (int, error) {
	return db.CountRowsContext(context.Background())
}

// CountRowsContext returns the number of rows with context support.
func (db *DB) CountRowsContext(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", db.dialect.quote(db.table))
	if err := db.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// GetEmployee returns the row for badgeCode, or nil if there is none.
func (db *DB) GetEmployee(ctx context.Context, badgeCode string) (*schema.Employee, error) {
	query := db.dialect.selectQuery(db.table, " WHERE cod_cracha = "+db.dialect.placeholder(1))

	var e schema.Employee
	err := db.conn.QueryRowContext(ctx, query, badgeCode).Scan(&e.BadgeCode, &e.Name, &e.Role, &e.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee %s: %w", badgeCode, err)
	}
	return &e, nil
}

// ListEmployees returns every row ordered by badge code.
func (db *DB) ListEmployees(ctx context.Context) ([]schema.Employee, error) {
	rows, err := db.conn.QueryContext(ctx, db.dialect.selectQuery(db.table, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []schema.Employee
	for rows.Next() {
		var e schema.Employee
		if err := rows.Scan(&e.BadgeCode, &e.Name, &e.Role, &e.Email); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return out, nil
}

// Conn acquires a dedicated connection from the pool.
// The caller MUST call Close() to return it.
func (db *DB) Conn(ctx context.Context) (*Conn, error) {
	c, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Conn{conn: c, dialect: db.dialect, table: db.table}, nil
}
