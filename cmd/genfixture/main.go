// Command genfixture builds the CSV fixtures used by the test suites from a
// raw weather API response and a lookup CSV. It runs the real domain package
// so the fixtures match what the pipeline would produce.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -weather data/mock/weather_houston.json \
//	  -lookup data/mock/us_city.csv \
//	  -staging-out /tmp/current_weather_data.csv \
//	  -joined-out /tmp/joined_weather_data.csv

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/adapter/filestore"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// publishTime is frozen so the printed snapshot key is reproducible.
var publishTime = time.Date(2024, time.December, 17, 15, 45, 30, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	weatherPath := flag.String("weather", "", "path to a raw current-weather JSON response")
	lookupPath := flag.String("lookup", "", "path to the city lookup CSV")
	stagingOut := flag.String("staging-out", "", "output path for the headerless observation row")
	joinedOut := flag.String("joined-out", "", "output path for the joined export")
	flag.Parse()

	if *weatherPath == "" || *lookupPath == "" || *stagingOut == "" || *joinedOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -weather, -lookup, -staging-out, -joined-out")
	}

	body, err := os.ReadFile(*weatherPath)
	if err != nil {
		return fmt.Errorf("read weather: %w", err)
	}
	obs, err := domain.NormalizeJSON(body)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", *weatherPath, err)
	}

	f, err := os.Open(*lookupPath)
	if err != nil {
		return fmt.Errorf("open lookup: %w", err)
	}
	defer f.Close()
	lookup, err := domain.ParseLookupCSV(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", *lookupPath, err)
	}

	joined := domain.InnerJoin([]domain.NormalizedObservation{obs}, lookup)

	row, err := domain.EncodeObservationRow(obs)
	if err != nil {
		return err
	}
	export, err := domain.EncodeJoinedCSV(joined)
	if err != nil {
		return err
	}

	ctx := context.Background()
	out := filestore.NewOS("")
	if err := out.WriteObject(ctx, *stagingOut, row); err != nil {
		return fmt.Errorf("writing staging fixture: %w", err)
	}
	log.Printf("wrote staging fixture: %s", *stagingOut)

	if err := out.WriteObject(ctx, *joinedOut, export); err != nil {
		return fmt.Errorf("writing joined fixture: %w", err)
	}
	log.Printf("wrote joined fixture: %s", *joinedOut)

	printStats(obs, lookup, joined, domain.SnapshotKey("", publishTime))
	return nil
}

func printStats(obs domain.NormalizedObservation, lookup []domain.LookupRecord, joined []domain.JoinedRecord, key string) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Observation: %s %q at %s\n", obs.City, obs.Description, obs.TimeOfRecord.Format(domain.LocalTimeLayout))
	fmt.Printf("Temperatures (F): temp=%v feels_like=%v min=%v max=%v\n",
		obs.TemperatureF, obs.FeelsLikeF, obs.TempMinF, obs.TempMaxF)
	fmt.Printf("Sunrise/sunset: %s / %s\n",
		obs.SunriseLocal.Format(domain.LocalTimeLayout), obs.SunsetLocal.Format(domain.LocalTimeLayout))
	fmt.Printf("Lookup rows: %d\n", len(lookup))
	fmt.Printf("Joined rows: %d\n", len(joined))
	fmt.Printf("Snapshot key at %s: %s\n", publishTime.Format(time.RFC3339), key)

	byState := map[string]int{}
	for _, rec := range lookup {
		byState[rec.State]++
	}
	states := make([]string, 0, len(byState))
	for s := range byState {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool {
		if byState[states[i]] != byState[states[j]] {
			return byState[states[i]] > byState[states[j]]
		}
		return states[i] < states[j]
	})
	fmt.Printf("States (%d): ", len(states))
	for _, s := range states {
		fmt.Printf("%s=%d ", s, byState[s])
	}
	fmt.Println()
}
