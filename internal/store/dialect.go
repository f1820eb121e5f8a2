package store

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/assinatura-email/sheetsync/internal/schema"
)

// Supported values for Config.Driver.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name can be used as an unqualified table
// name. Table names are interpolated into SQL, so anything else is rejected.
func ValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}

// dialect holds the SQL that differs between database engines.
type dialect struct {
	name       string
	driverName string

	// placeholder returns the bind marker for the n-th (1-based) argument.
	placeholder func(n int) string
	quote       func(ident string) string

	// existsQuery counts tables named by its single argument.
	existsQuery string
	// conflictClause follows the VALUES list of the upsert.
	conflictClause string
	textType       string
}

var dialects = map[string]*dialect{
	DriverPostgres: {
		name:        DriverPostgres,
		driverName:  "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		quote:       doubleQuote,
		existsQuery: `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1`,
		conflictClause: `ON CONFLICT (cod_cracha) DO UPDATE SET
			nm_funcionario = EXCLUDED.nm_funcionario,
			cargo = EXCLUDED.cargo,
			email = EXCLUDED.email`,
		textType: "VARCHAR(255)",
	},
	DriverMySQL: {
		name:        DriverMySQL,
		driverName:  "mysql",
		placeholder: func(int) string { return "?" },
		quote:       func(ident string) string { return "`" + ident + "`" },
		existsQuery: `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_name = ?`,
		conflictClause: `ON DUPLICATE KEY UPDATE
			nm_funcionario = VALUES(nm_funcionario),
			cargo = VALUES(cargo),
			email = VALUES(email)`,
		textType: "VARCHAR(255)",
	},
	DriverSQLite: {
		name:           DriverSQLite,
		driverName:     "sqlite3",
		placeholder:    func(int) string { return "?" },
		quote:          doubleQuote,
		existsQuery:    `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		conflictClause: `ON CONFLICT (cod_cracha) DO UPDATE SET
			nm_funcionario = excluded.nm_funcionario,
			cargo = excluded.cargo,
			email = excluded.email`,
		textType: "TEXT",
	},
}

func doubleQuote(ident string) string {
	return `"` + ident + `"`
}

// SupportedDriver reports whether driver names a supported engine.
func SupportedDriver(driver string) bool {
	_, ok := dialects[strings.ToLower(driver)]
	return ok
}

func lookupDialect(driver string) (*dialect, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return d, nil
}

func (d *dialect) upsertQuery(table string) string {
	marks := make([]string, len(schema.Columns))
	for i := range marks {
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		d.quote(table),
		strings.Join(schema.Columns, ", "),
		strings.Join(marks, ", "),
		d.conflictClause,
	)
}

func (d *dialect) createTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		cod_cracha %s PRIMARY KEY,
		nm_funcionario %s NOT NULL,
		cargo %s NOT NULL,
		email %s NOT NULL
	)`, d.quote(table), d.keyType(), d.textType, d.textType, d.textType)
}

func (d *dialect) keyType() string {
	if d.name == DriverSQLite {
		return "TEXT"
	}
	return "VARCHAR(64)"
}

func (d *dialect) selectQuery(table, where string) string {
	return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY cod_cracha",
		strings.Join(schema.Columns, ", "), d.quote(table), where)
}

// dsn builds the driver-specific data source name.
func (d *dialect) dsn(cfg Config) string {
	switch d.name {
	case DriverPostgres:
		return postgresURL(cfg)
	case DriverMySQL:
		return mysqlConfig(cfg).FormatDSN()
	default:
		// busy_timeout lets concurrent syncs wait for the write lock.
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_txlock=immediate", cfg.Path)
	}
}

// migrateURL is the URL golang-migrate expects for this database.
func (d *dialect) migrateURL(cfg Config) (string, error) {
	switch d.name {
	case DriverPostgres:
		return postgresURL(cfg), nil
	case DriverMySQL:
		c := mysqlConfig(cfg)
		c.MultiStatements = true
		return "mysql://" + c.FormatDSN(), nil
	default:
		return "", fmt.Errorf("migrations are not supported for %s; use init-schema", d.name)
	}
}

func postgresURL(cfg Config) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func mysqlConfig(cfg Config) *mysql.Config {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Name
	return c
}
