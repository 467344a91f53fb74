package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// ReloadLookup rebuilds the reference table from records. Creation, removal
// of the previous contents and the bulk load share one transaction, so
// readers see either the old table or the new one and a repeated reload
// never duplicates rows.
func (s *Store) ReloadLookup(ctx context.Context, records []domain.LookupRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "begin", Err: err}
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, lookupDDL); err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "create", Err: err}
	}
	if _, err := tx.ExecContext(ctx, s.truncateStmt(LookupTable)); err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "truncate", Err: err}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = rec.Values()
	}

	if s.driver == driverPostgres {
		err = copyRows(ctx, tx, copyInto(LookupTable, domain.LookupColumns), rows)
	} else {
		err = s.insertRows(ctx, tx, LookupTable, domain.LookupColumns, rows)
	}
	if err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "load", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "commit", Err: err}
	}
	s.logger.Info("lookup table reloaded", "rows", len(records))
	return nil
}

// ImportLookupFromS3 rebuilds the reference table server-side with the RDS
// aws_s3 extension, which reads the CSV straight from the bucket. PostgreSQL
// only.
func (s *Store) ImportLookupFromS3(ctx context.Context, bucket, key, region string) error {
	if s.driver != driverPostgres {
		return &domain.StoreWriteError{Table: LookupTable, Op: "import", Err: fmt.Errorf("aws_s3 import needs postgres, have %s", s.driver)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "begin", Err: err}
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, lookupDDL); err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "create", Err: err}
	}
	if _, err := tx.ExecContext(ctx, s.truncateStmt(LookupTable)); err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "truncate", Err: err}
	}

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT aws_s3.table_import_from_s3($1, '', '(format csv, header true)', $2, $3, $4)`,
		LookupTable, bucket, key, region,
	).Scan(&status)
	if err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "import", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreWriteError{Table: LookupTable, Op: "commit", Err: err}
	}
	s.logger.Info("lookup table imported", "bucket", bucket, "key", key, "status", status)
	return nil
}

// LookupRecords reads the reference table.
func (s *Store) LookupRecords(ctx context.Context) ([]domain.LookupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+strings.Join(domain.LookupColumns, ", ")+" FROM "+LookupTable)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query lookup: %w", err)
	}
	defer rows.Close()

	var out []domain.LookupRecord
	for rows.Next() {
		var r domain.LookupRecord
		if err := rows.Scan(&r.City, &r.State, wholeNumber{&r.Population}, &r.LandAreaSqMile); err != nil {
			return nil, fmt.Errorf("sqlstore: scan lookup: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) truncateStmt(table string) string {
	if s.driver == driverPostgres {
		return "TRUNCATE TABLE " + table
	}
	return "DELETE FROM " + table
}

func (s *Store) insertRows(ctx context.Context, ex execer, table string, columns []string, rows [][]any) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), s.placeholders(len(columns)))
	for i, row := range rows {
		if _, err := ex.ExecContext(ctx, query, row...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	return nil
}
