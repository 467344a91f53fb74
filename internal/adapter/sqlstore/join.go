package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// joinQuery pairs observations with reference rows on exact city equality.
const joinQuery = `
SELECT
	w.city,
	w.description,
	w.temperature_f,
	w.feels_like_f,
	w.temp_min_f,
	w.temp_max_f,
	w.pressure,
	w.humidity,
	w.wind_speed,
	w.time_of_record,
	w.sunrise_local,
	w.sunset_local,
	c.state,
	c.population,
	c.land_area_sq_mile
FROM weather_data w
INNER JOIN city_look_up c
	ON w.city = c.city
ORDER BY w.time_of_record, w.city, c.state`

// Counts returns the row counts of the observation and reference tables.
func (s *Store) Counts(ctx context.Context) (observations, lookup int64, err error) {
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ObservationTable).Scan(&observations); err != nil {
		return 0, 0, fmt.Errorf("sqlstore: count %s: %w", ObservationTable, err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+LookupTable).Scan(&lookup); err != nil {
		return 0, 0, fmt.Errorf("sqlstore: count %s: %w", LookupTable, err)
	}
	return observations, lookup, nil
}

// JoinedRecords runs the inner join. No match is an empty, non-nil slice.
func (s *Store) JoinedRecords(ctx context.Context) ([]domain.JoinedRecord, error) {
	rows, err := s.db.QueryContext(ctx, joinQuery)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: join: %w", err)
	}
	defer rows.Close()

	out := []domain.JoinedRecord{}
	for rows.Next() {
		var j domain.JoinedRecord
		dest := append(observationDest(&j.NormalizedObservation), &j.State, wholeNumber{&j.Population}, &j.LandAreaSqMile)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlstore: scan joined row: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// wholeNumber scans a NUMERIC population. A server-side import keeps the
// source's scale, so PostgreSQL may hand back "2304580.0".
type wholeNumber struct{ n *int64 }

func (w wholeNumber) Scan(src any) error {
	var err error
	switch v := src.(type) {
	case int64:
		*w.n = v
	case float64:
		*w.n, err = domain.ParseWholeNumber(strconv.FormatFloat(v, 'f', -1, 64))
	case []byte:
		*w.n, err = domain.ParseWholeNumber(string(v))
	case string:
		*w.n, err = domain.ParseWholeNumber(v)
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into a whole number", src)
	}
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
