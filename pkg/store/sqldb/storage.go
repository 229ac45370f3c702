package sqldb

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects placeholder style and schema variant for the configured
// driver. The report engine itself only assumes a store that can select
// joined fields, filter with equals/in/range, and order by a single key.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Placeholder renders the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

type Settings struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

var sqliteBootQueries = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number TEXT NOT NULL,
		model TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS rate_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER REFERENCES clients(id),
		unit_price REAL,
		currency TEXT NOT NULL DEFAULT 'USD'
	);`,
	`CREATE TABLE IF NOT EXISTS work_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		work_date DATE NOT NULL,
		vehicle_id INTEGER REFERENCES vehicles(id),
		rate_config_id INTEGER REFERENCES rate_configs(id),
		location_id INTEGER REFERENCES locations(id),
		employee_id INTEGER REFERENCES employees(id),
		quantity REAL,
		total_revenue REAL,
		fuel_cost REAL,
		notes TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS report_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		report_type TEXT NOT NULL,
		config TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		is_system BOOLEAN NOT NULL DEFAULT 0
	);`,
}

var postgresBootQueries = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id BIGSERIAL PRIMARY KEY,
		number TEXT NOT NULL,
		model TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS rate_configs (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT REFERENCES clients(id),
		unit_price DOUBLE PRECISION,
		currency TEXT NOT NULL DEFAULT 'USD'
	);`,
	`CREATE TABLE IF NOT EXISTS work_records (
		id BIGSERIAL PRIMARY KEY,
		work_date DATE NOT NULL,
		vehicle_id BIGINT REFERENCES vehicles(id),
		rate_config_id BIGINT REFERENCES rate_configs(id),
		location_id BIGINT REFERENCES locations(id),
		employee_id BIGINT REFERENCES employees(id),
		quantity DOUBLE PRECISION,
		total_revenue DOUBLE PRECISION,
		fuel_cost DOUBLE PRECISION,
		notes TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS report_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		report_type TEXT NOT NULL,
		config TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		is_system BOOLEAN NOT NULL DEFAULT FALSE
	);`,
}

// ParseDialect maps a configured driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres":
		return DialectPostgres, nil
	default:
		return DialectSQLite, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// NewDB opens the configured database and runs the boot schema.
func NewDB(settings Settings) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(settings.Driver)
	if err != nil {
		return nil, dialect, err
	}

	db, err := sql.Open(dialect.driverName(), settings.DSN)
	if err != nil {
		return nil, dialect, fmt.Errorf("open %s database: %w", settings.Driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, dialect, fmt.Errorf("ping %s database: %w", settings.Driver, err)
	}

	boot := sqliteBootQueries
	if dialect == DialectPostgres {
		boot = postgresBootQueries
	}
	for _, query := range boot {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, dialect, fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return db, dialect, nil
}
