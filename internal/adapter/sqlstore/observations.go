package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/lib/pq"
)

// AppendObservation appends one row to the observation table, binding values
// by position. The live column list must equal domain.ObservationColumns in
// order and arity; otherwise nothing is written and a *domain.StoreWriteError
// is returned.
func (s *Store) AppendObservation(ctx context.Context, obs domain.NormalizedObservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreWriteError{Table: ObservationTable, Op: "begin", Err: err}
	}
	defer rollback(tx)

	cols, err := s.tableColumns(ctx, tx, ObservationTable)
	if err != nil {
		return &domain.StoreWriteError{Table: ObservationTable, Op: "describe", Err: err}
	}
	if !slices.Equal(cols, domain.ObservationColumns) {
		return &domain.StoreWriteError{
			Table: ObservationTable,
			Op:    "describe",
			Err: fmt.Errorf("column mismatch: have [%s], want [%s]",
				strings.Join(cols, ", "), strings.Join(domain.ObservationColumns, ", ")),
		}
	}

	values := bindValues(obs.Values())
	if s.driver == driverPostgres {
		// Positional COPY: no column list, so the table order decides binding.
		err = copyRows(ctx, tx, "COPY "+ObservationTable+" FROM STDIN", [][]any{values})
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO "+ObservationTable+" VALUES ("+s.placeholders(len(values))+")", values...)
	}
	if err != nil {
		return &domain.StoreWriteError{Table: ObservationTable, Op: "append", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreWriteError{Table: ObservationTable, Op: "commit", Err: err}
	}
	s.logger.Debug("observation appended", "city", obs.City, "time_of_record", obs.TimeOfRecord)
	return nil
}

// Observations reads every stored observation in insertion order.
func (s *Store) Observations(ctx context.Context) ([]domain.NormalizedObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+strings.Join(domain.ObservationColumns, ", ")+" FROM "+ObservationTable)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query observations: %w", err)
	}
	defer rows.Close()

	var out []domain.NormalizedObservation
	for rows.Next() {
		var o domain.NormalizedObservation
		if err := rows.Scan(observationDest(&o)...); err != nil {
			return nil, fmt.Errorf("sqlstore: scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func observationDest(o *domain.NormalizedObservation) []any {
	return []any{
		&o.City,
		&o.Description,
		&o.TemperatureF,
		&o.FeelsLikeF,
		&o.TempMinF,
		&o.TempMaxF,
		&o.Pressure,
		&o.Humidity,
		&o.WindSpeed,
		wallClock{&o.TimeOfRecord},
		wallClock{&o.SunriseLocal},
		wallClock{&o.SunsetLocal},
	}
}

// bindValues renders timestamps as naive wall-clock text so neither driver
// attaches a zone to them.
func bindValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			out[i] = t.Format(domain.LocalTimeLayout)
			continue
		}
		out[i] = v
	}
	return out
}

// copyRows streams rows through a COPY ... FROM STDIN statement inside tx.
func copyRows(ctx context.Context, tx *sql.Tx, copyStmt string, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, copyStmt)
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	return stmt.Close()
}

// copyInto builds a COPY statement with an explicit, quoted column list.
func copyInto(table string, columns []string) string {
	return pq.CopyIn(table, columns...)
}

// wallClock scans a TIMESTAMP column into a zone-free time. Drivers hand back
// time.Time, text or bytes depending on the dialect.
type wallClock struct{ t *time.Time }

var timestampLayouts = []string{
	domain.LocalTimeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

func (w wallClock) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*w.t = time.Date(v.Year(), v.Month(), v.Day(), v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), time.UTC)
		return nil
	case string:
		return w.parse(v)
	case []byte:
		return w.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (w wallClock) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return w.Scan(t)
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
