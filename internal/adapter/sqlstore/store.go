// Package sqlstore persists observations and the city reference table in a
// relational database and runs the join that feeds the export. PostgreSQL is
// the production target; SQLite serves local runs and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	// ObservationTable receives one appended row per run.
	ObservationTable = "weather_data"
	// LookupTable holds the static city reference data, rebuilt every run.
	LookupTable = "city_look_up"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// Store is a database/sql handle bound to one dialect.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the database and verifies the connection. driver is
// "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	switch driver {
	case driverPostgres, driverSQLite:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if driver == driverSQLite {
		// An in-memory database lives on a single connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}

	return &Store{db: db, driver: driver, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// EnsureObservationTable creates the observation table when it does not exist.
// An existing table is left untouched, even when its shape differs;
// AppendObservation reports that.
func (s *Store) EnsureObservationTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, observationDDL); err != nil {
		return fmt.Errorf("sqlstore: create %s: %w", ObservationTable, err)
	}
	return nil
}

const observationDDL = `
CREATE TABLE IF NOT EXISTS weather_data (
	city           TEXT,
	description    TEXT,
	temperature_f  NUMERIC,
	feels_like_f   NUMERIC,
	temp_min_f     NUMERIC,
	temp_max_f     NUMERIC,
	pressure       NUMERIC,
	humidity       NUMERIC,
	wind_speed     NUMERIC,
	time_of_record TIMESTAMP,
	sunrise_local  TIMESTAMP,
	sunset_local   TIMESTAMP
)`

const lookupDDL = `
CREATE TABLE IF NOT EXISTS city_look_up (
	city              TEXT NOT NULL,
	state             TEXT NOT NULL,
	population        NUMERIC NOT NULL,
	land_area_sq_mile NUMERIC NOT NULL
)`

// placeholders returns n bind markers in the dialect's syntax.
func (s *Store) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if s.driver == driverPostgres {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

func (s *Store) columnsQuery() string {
	if s.driver == driverPostgres {
		return `SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position`
	}
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`
}

// tableColumns lists a table's columns in ordinal order. A missing table
// yields an empty list.
func (s *Store) tableColumns(ctx context.Context, q querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.columnsQuery(), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, strings.ToLower(name))
	}
	return cols, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// rollback is deferred after BeginTx; it is a no-op once the tx committed.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
