package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// EncodeObservationRow renders the single headerless row used as the staging
// artifact between normalization and load.
func EncodeObservationRow(obs NormalizedObservation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(obs.CSVRecord()); err != nil {
		return nil, fmt.Errorf("encode observation row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode observation row: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJoinedCSV renders the joined export with a header row. An empty
// slice yields the header alone.
func EncodeJoinedCSV(records []JoinedRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(JoinedColumns); err != nil {
		return nil, fmt.Errorf("encode joined header: %w", err)
	}
	for i := range records {
		if err := w.Write(records[i].CSVRecord()); err != nil {
			return nil, fmt.Errorf("encode joined row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode joined csv: %w", err)
	}
	return buf.Bytes(), nil
}
