package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// LookupColumns is the positional column order of the city reference table.
var LookupColumns = []string{"city", "state", "population", "land_area_sq_mile"}

// LookupRecord is one row of the static city reference table.
type LookupRecord struct {
	City           string  `json:"city"`
	State          string  `json:"state"`
	Population     int64   `json:"population"`
	LandAreaSqMile float64 `json:"land_area_sq_mile"`
}

// Values returns the record's fields in LookupColumns order.
func (r LookupRecord) Values() []any {
	return []any{r.City, r.State, r.Population, r.LandAreaSqMile}
}

// ParseLookupCSV reads the staged reference file. The first row is a header
// and is skipped; its names are not checked, only its width. City and state
// are kept verbatim because they feed an exact-match join.
func ParseLookupCSV(r io.Reader) ([]LookupRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(LookupColumns)

	_, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedInputError{Field: "header", Reason: "lookup file is empty"}
	}
	if err != nil {
		return nil, lookupParseError(err)
	}
	var records []LookupRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, lookupParseError(err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseLookupRow(row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseLookupRow(row []string, line int) (LookupRecord, error) {
	field := func(col int) string {
		return fmt.Sprintf("line %d %s", line, LookupColumns[col])
	}

	if row[0] == "" {
		return LookupRecord{}, &MalformedInputError{Field: field(0), Reason: "missing"}
	}
	if row[1] == "" {
		return LookupRecord{}, &MalformedInputError{Field: field(1), Reason: "missing"}
	}

	population, err := ParseWholeNumber(row[2])
	if err != nil {
		return LookupRecord{}, &MalformedInputError{Field: field(2), Err: err}
	}

	area, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return LookupRecord{}, &MalformedInputError{Field: field(3), Err: err}
	}
	if math.IsNaN(area) || math.IsInf(area, 0) {
		return LookupRecord{}, &MalformedInputError{Field: field(3), Reason: "not a finite number"}
	}

	return LookupRecord{
		City:           row[0],
		State:          row[1],
		Population:     population,
		LandAreaSqMile: area,
	}, nil
}

// ParseWholeNumber accepts "2304580" and the "2304580.0" form spreadsheets
// and NUMERIC columns tend to emit.
func ParseWholeNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return int64(f), nil
}

func lookupParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &MalformedInputError{Field: fmt.Sprintf("line %d", pe.Line), Err: pe.Err}
	}
	return &MalformedInputError{Reason: "read lookup file", Err: err}
}
