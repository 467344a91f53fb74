// Command validate checks a joined weather export for integrity: header and
// row shape, value formats, agreement with the raw inputs it was built from,
// and, when given, that a snapshot file is named and filled like the export.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -export data/joined_weather_data.csv \
//	  -weather data/mock/weather_houston.json \
//	  -lookup data/mock/us_city.csv \
//	  -snapshot data/objects/joined_weather_data_17122024154530.csv
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/adapter/filestore"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// Column positions within domain.JoinedColumns.
var (
	temperatureCols = []int{2, 3, 4, 5}
	readingCols     = []int{6, 7, 8}
	timestampCols   = []int{9, 10, 11}
	populationCol   = 13
	areaCol         = 14
)

func main() {
	exportPath := flag.String("export", "", "path to the joined export CSV")
	weatherPath := flag.String("weather", "", "optional raw weather JSON the export was built from")
	lookupPath := flag.String("lookup", "", "optional lookup CSV the export was built from")
	snapshotPath := flag.String("snapshot", "", "optional snapshot file to compare with the export")
	flag.Parse()

	if *exportPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*exportPath, *weatherPath, *lookupPath, *snapshotPath); code != 0 {
		os.Exit(code)
	}
}

func run(exportPath, weatherPath, lookupPath, snapshotPath string) int {
	fmt.Println("=== Weather Export Validation ===")
	fmt.Println()

	files := filestore.NewOS("")
	raw, err := readFile(files, exportPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read export: %v\n", err)
		return 1
	}
	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse export: %v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: export is empty; even an empty join has a header")
		return 1
	}

	phases := []*phase{
		validateShape(rows),
		validateValues(rows[1:]),
	}
	if weatherPath != "" && lookupPath != "" {
		phases = append(phases, validateAgainstInputs(files, rows[1:], weatherPath, lookupPath))
	}
	if snapshotPath != "" {
		phases = append(phases, validateSnapshot(files, raw, snapshotPath))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d joined rows\n", len(rows)-1)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateShape(rows [][]string) *phase {
	p := &phase{name: "Header and row shape"}
	if !slices.Equal(rows[0], domain.JoinedColumns) {
		p.errorf("header = %v, want %v", rows[0], domain.JoinedColumns)
	}
	for i, row := range rows[1:] {
		if len(row) != len(domain.JoinedColumns) {
			p.errorf("line %d: %d fields, want %d", i+2, len(row), len(domain.JoinedColumns))
		}
	}
	return p
}

func validateValues(rows [][]string) *phase {
	p := &phase{name: "Value formats"}
	for i, row := range rows {
		line := i + 2
		if len(row) != len(domain.JoinedColumns) {
			continue
		}
		if row[0] == "" {
			p.errorf("line %d: empty city", line)
		}
		for _, c := range temperatureCols {
			if !isNumber(row[c]) {
				p.errorf("line %d: %s=%q is not a number", line, domain.JoinedColumns[c], row[c])
			} else if decimals(row[c]) > 3 {
				p.errorf("line %d: %s=%q has more than 3 decimals", line, domain.JoinedColumns[c], row[c])
			}
		}
		for _, c := range append(readingCols, areaCol) {
			if !isNumber(row[c]) {
				p.errorf("line %d: %s=%q is not a number", line, domain.JoinedColumns[c], row[c])
			}
		}
		if _, err := strconv.ParseInt(row[populationCol], 10, 64); err != nil {
			p.errorf("line %d: population=%q is not a whole number", line, row[populationCol])
		}

		var times []time.Time
		for _, c := range timestampCols {
			t, err := time.Parse(domain.LocalTimeLayout, row[c])
			if err != nil {
				p.errorf("line %d: %s=%q: %v", line, domain.JoinedColumns[c], row[c], err)
				continue
			}
			times = append(times, t)
		}
		if len(times) == len(timestampCols) && !times[1].Before(times[2]) {
			p.errorf("line %d: sunrise %s is not before sunset %s", line, row[10], row[11])
		}
	}
	return p
}

func validateAgainstInputs(files *filestore.Store, rows [][]string, weatherPath, lookupPath string) *phase {
	p := &phase{name: "Agreement with raw inputs"}

	body, err := readFile(files, weatherPath)
	if err != nil {
		p.errorf("read weather: %v", err)
		return p
	}
	obs, err := domain.NormalizeJSON(body)
	if err != nil {
		p.errorf("normalize weather: %v", err)
		return p
	}

	lookupData, err := readFile(files, lookupPath)
	if err != nil {
		p.errorf("read lookup: %v", err)
		return p
	}
	lookup, err := domain.ParseLookupCSV(bytes.NewReader(lookupData))
	if err != nil {
		p.errorf("parse lookup: %v", err)
		return p
	}

	have := make(map[string]bool, len(rows))
	for _, row := range rows {
		have[strings.Join(row, "\x1f")] = true
	}
	for _, want := range domain.InnerJoin([]domain.NormalizedObservation{obs}, lookup) {
		if !have[strings.Join(want.CSVRecord(), "\x1f")] {
			p.errorf("missing joined row for %s at %s", want.City, want.TimeOfRecord.Format(domain.LocalTimeLayout))
		}
	}
	return p
}

func validateSnapshot(files *filestore.Store, export []byte, snapshotPath string) *phase {
	p := &phase{name: "Snapshot name and contents"}

	name := filepath.Base(snapshotPath)
	stamp, ok := strings.CutPrefix(name, "joined_weather_data_")
	stamp, hasExt := strings.CutSuffix(stamp, ".csv")
	if !ok || !hasExt {
		p.errorf("snapshot name %q does not match joined_weather_data_<ddMMyyyyHHmmss>.csv", name)
	} else if _, err := time.Parse(domain.SnapshotKeyLayout, stamp); err != nil {
		p.errorf("snapshot timestamp %q: %v", stamp, err)
	}

	if ok, err := files.Exists(snapshotPath); err != nil || !ok {
		p.errorf("snapshot %s not found", snapshotPath)
		return p
	}
	snap, err := readFile(files, snapshotPath)
	if err != nil {
		p.errorf("read snapshot: %v", err)
		return p
	}
	if !bytes.Equal(snap, export) {
		p.errorf("snapshot contents differ from the export (%d vs %d bytes)", len(snap), len(export))
	}
	return p
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func decimals(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func readFile(files *filestore.Store, path string) ([]byte, error) {
	r, err := files.Open(context.Background(), path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
