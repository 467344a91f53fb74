package domain

import "strconv"

// JoinedColumns is the column order of the joined export.
var JoinedColumns = append(append([]string{}, ObservationColumns...), "state", "population", "land_area_sq_mile")

// JoinedRecord is an observation enriched with its city's reference data.
type JoinedRecord struct {
	NormalizedObservation
	State          string  `json:"state"`
	Population     int64   `json:"population"`
	LandAreaSqMile float64 `json:"land_area_sq_mile"`
}

// CSVRecord formats the record in JoinedColumns order.
func (j JoinedRecord) CSVRecord() []string {
	return append(j.NormalizedObservation.CSVRecord(),
		j.State,
		strconv.FormatInt(j.Population, 10),
		formatNumber(j.LandAreaSqMile),
	)
}

// InnerJoin pairs every observation with every lookup row whose city is
// byte-for-byte equal. Observations without a match are dropped. Output
// follows observation order, then lookup order.
func InnerJoin(observations []NormalizedObservation, lookup []LookupRecord) []JoinedRecord {
	byCity := make(map[string][]LookupRecord, len(lookup))
	for _, rec := range lookup {
		byCity[rec.City] = append(byCity[rec.City], rec)
	}

	joined := make([]JoinedRecord, 0, len(observations))
	for _, obs := range observations {
		for _, rec := range byCity[obs.City] {
			joined = append(joined, JoinedRecord{
				NormalizedObservation: obs,
				State:                 rec.State,
				Population:            rec.Population,
				LandAreaSqMile:        rec.LandAreaSqMile,
			})
		}
	}
	return joined
}
