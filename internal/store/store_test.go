package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/assinatura-email/sheetsync/internal/schema"
)

// openTestDB opens a SQLite database in a temp dir; the destination table is
// created unless skipSchema is set.
func openTestDB(t *testing.T, skipSchema bool) *DB {
	t.Helper()

	db, err := Open(Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if !skipSchema {
		if err := db.InitSchema(); err != nil {
			t.Fatalf("InitSchema() failed: %v", err)
		}
	}
	return db
}

func upsert(t *testing.T, db *DB, employees ...schema.Employee) int {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer conn.Close()

	n, err := conn.UpsertEmployees(ctx, employees)
	if err != nil {
		t.Fatalf("UpsertEmployees() failed: %v", err)
	}
	return n
}

func TestOpen_Defaults(t *testing.T) {
	db := openTestDB(t, true)

	if db.Table() != schema.DefaultTable {
		t.Errorf("Table() = %q, want %q", db.Table(), schema.DefaultTable)
	}
	if db.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", db.Driver(), DriverSQLite)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestOpen_InvalidTable(t *testing.T) {
	_, err := Open(Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Table:  "employees; DROP TABLE x",
	})
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("Open() error = %v, want ErrInvalidIdentifier", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("Open() error = %v, want ErrUnsupportedDriver", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := openTestDB(t, false)

	if err := db.InitSchema(); err != nil {
		t.Errorf("second InitSchema() failed: %v", err)
	}
}

func TestTableExists(t *testing.T) {
	db := openTestDB(t, true)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	ok, err := conn.TableExists(ctx)
	conn.Close()
	if err != nil {
		t.Fatalf("TableExists() failed: %v", err)
	}
	if ok {
		t.Error("TableExists() = true before InitSchema")
	}

	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	conn, err = db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer conn.Close()
	ok, err = conn.TableExists(ctx)
	if err != nil {
		t.Fatalf("TableExists() failed: %v", err)
	}
	if !ok {
		t.Error("TableExists() = false after InitSchema")
	}
}

func TestUpsertEmployees_InsertAndUpdate(t *testing.T) {
	db := openTestDB(t, false)
	ctx := context.Background()

	upsert(t, db,
		schema.Employee{BadgeCode: "123", Name: "Alice", Role: "Dev", Email: "alice@example.com"},
		schema.Employee{BadgeCode: "456", Name: "Bob", Role: "Ops", Email: "bob@example.com"},
	)
	upsert(t, db,
		schema.Employee{BadgeCode: "123", Name: "Alicia", Role: "Lead", Email: "alicia@example.com"},
	)

	count, err := db.CountRows()
	if err != nil {
		t.Fatalf("CountRows() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountRows() = %d, want 2", count)
	}

	got, err := db.GetEmployee(ctx, "123")
	if err != nil {
		t.Fatalf("GetEmployee() failed: %v", err)
	}
	want := schema.Employee{BadgeCode: "123", Name: "Alicia", Role: "Lead", Email: "alicia@example.com"}
	if got == nil || *got != want {
		t.Errorf("GetEmployee() = %+v, want %+v", got, want)
	}
}

func TestUpsertEmployees_Idempotent(t *testing.T) {
	db := openTestDB(t, false)
	ctx := context.Background()

	batch := []schema.Employee{
		{BadgeCode: "1", Name: "Alice", Role: "Dev", Email: "alice@example.com"},
		{BadgeCode: "2", Name: "Bob", Role: "Ops", Email: "bob@example.com"},
	}
	upsert(t, db, batch...)
	first, err := db.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("ListEmployees() failed: %v", err)
	}

	upsert(t, db, batch...)
	second, err := db.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("ListEmployees() failed: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("row counts = %d, %d, want 2, 2", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("row %d changed: %+v -> %+v", i, first[i], second[i])
		}
	}
}

func TestUpsertEmployees_RollbackOnInvalid(t *testing.T) {
	db := openTestDB(t, false)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer conn.Close()

	_, err = conn.UpsertEmployees(ctx, []schema.Employee{
		{BadgeCode: "1", Name: "Alice", Role: "Dev", Email: "alice@example.com"},
		{BadgeCode: "2", Name: "Bob", Role: "Ops"},
	})
	if err == nil {
		t.Fatal("UpsertEmployees() should fail on an incomplete employee")
	}

	count, err := db.CountRowsContext(ctx)
	if err != nil {
		t.Fatalf("CountRows() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("CountRows() = %d after rollback, want 0", count)
	}
}

func TestUpsertEmployees_MissingTable(t *testing.T) {
	db := openTestDB(t, true)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer conn.Close()

	_, err = conn.UpsertEmployees(ctx, []schema.Employee{
		{BadgeCode: "1", Name: "Alice", Role: "Dev", Email: "alice@example.com"},
	})
	if err == nil {
		t.Fatal("UpsertEmployees() should fail without a table")
	}
}

func TestGetEmployee_NotFound(t *testing.T) {
	db := openTestDB(t, false)

	got, err := db.GetEmployee(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetEmployee() failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetEmployee() = %+v, want nil", got)
	}
}

func TestIsConstraintViolation_SQLite(t *testing.T) {
	db := openTestDB(t, false)

	_, err := db.conn.ExecContext(context.Background(),
		`INSERT INTO "assinatura_email" (cod_cracha, nm_funcionario, cargo) VALUES ('1', 'Alice', 'Dev')`)
	if err == nil {
		t.Fatal("insert without email should fail the NOT NULL constraint")
	}
	if !IsConstraintViolation(err) {
		t.Errorf("IsConstraintViolation(%v) = false, want true", err)
	}
	if IsConnectionError(err) {
		t.Errorf("IsConnectionError(%v) = true, want false", err)
	}
}
