package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assinatura-email/sheetsync/internal/schema"
)

// Conn is a single connection scoped to one sync run.
type Conn struct {
	conn    *sql.Conn
	dialect *dialect
	table   string
}

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// TableExists reports whether the destination table exists in the current
// schema (postgres), database (mysql) or file (sqlite).
func (c *Conn) TableExists(ctx context.Context) (bool, error) {
	var count int
	if err := c.conn.QueryRowContext(ctx, c.dialect.existsQuery, c.table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", c.table, err)
	}
	return count > 0, nil
}

// UpsertEmployees writes every employee in one transaction, one statement
// per row. An existing row with the same badge code has its name, role and
// email overwritten. On any error the transaction is rolled back and no row
// of this batch is kept.
//
// Returns the number of rows written.
func (c *Conn) UpsertEmployees(ctx context.Context, employees []schema.Employee) (int, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, c.dialect.upsertQuery(c.table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range employees {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("invalid employee %s: %w", e.BadgeCode, err)
		}
		if _, err := stmt.ExecContext(ctx, e.BadgeCode, e.Name, e.Role, e.Email); err != nil {
			return 0, fmt.Errorf("failed to upsert employee %s: %w", e.BadgeCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(employees), nil
}
