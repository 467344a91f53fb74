package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observationFor(city string) NormalizedObservation {
	ts := time.Date(2024, 12, 17, 9, 40, 0, 0, time.UTC)
	return NormalizedObservation{
		City:         city,
		Description:  "clear sky",
		TemperatureF: 80.6,
		FeelsLikeF:   84.668,
		TempMinF:     78.008,
		TempMaxF:     82.994,
		Pressure:     1012,
		Humidity:     74,
		WindSpeed:    5.66,
		TimeOfRecord: ts,
		SunriseLocal: ts.Add(-2 * time.Hour),
		SunsetLocal:  ts.Add(8 * time.Hour),
	}
}

func TestInnerJoin_DropsUnmatched(t *testing.T) {
	obs := []NormalizedObservation{observationFor("Houston"), observationFor("Dallas")}
	lookup := []LookupRecord{
		{City: "Houston", State: "Texas", Population: 2304580, LandAreaSqMile: 640.4},
		{City: "Austin", State: "Texas", Population: 961855, LandAreaSqMile: 319.9},
	}

	joined := InnerJoin(obs, lookup)
	require.Len(t, joined, 1)
	assert.Equal(t, "Houston", joined[0].City)
	assert.Equal(t, "Texas", joined[0].State)
	assert.Equal(t, int64(2304580), joined[0].Population)
	assert.Equal(t, 640.4, joined[0].LandAreaSqMile)
}

func TestInnerJoin_NoOverlapIsEmpty(t *testing.T) {
	joined := InnerJoin(
		[]NormalizedObservation{observationFor("Dallas")},
		[]LookupRecord{{City: "Austin", State: "Texas"}},
	)
	assert.NotNil(t, joined)
	assert.Empty(t, joined)
}

func TestInnerJoin_CaseSensitive(t *testing.T) {
	joined := InnerJoin(
		[]NormalizedObservation{observationFor("houston"), observationFor("Houston ")},
		[]LookupRecord{{City: "Houston", State: "Texas"}},
	)
	assert.Empty(t, joined)
}

func TestInnerJoin_EveryObservationKept(t *testing.T) {
	first := observationFor("Houston")
	second := observationFor("Houston")
	second.TimeOfRecord = second.TimeOfRecord.Add(24 * time.Hour)

	joined := InnerJoin([]NormalizedObservation{first, second}, []LookupRecord{{City: "Houston", State: "Texas"}})
	require.Len(t, joined, 2)
	assert.Equal(t, first.TimeOfRecord, joined[0].TimeOfRecord)
	assert.Equal(t, second.TimeOfRecord, joined[1].TimeOfRecord)
}

func TestEncodeJoinedCSV(t *testing.T) {
	joined := InnerJoin(
		[]NormalizedObservation{observationFor("Houston")},
		[]LookupRecord{{City: "Houston", State: "Texas", Population: 2304580, LandAreaSqMile: 640.4}},
	)

	out, err := EncodeJoinedCSV(joined)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(JoinedColumns, ","), lines[0])
	assert.Equal(t,
		"Houston,clear sky,80.6,84.668,78.008,82.994,1012,74,5.66,2024-12-17 09:40:00,2024-12-17 07:40:00,2024-12-17 17:40:00,Texas,2304580,640.4",
		lines[1])
}

func TestEncodeJoinedCSV_EmptyHasHeader(t *testing.T) {
	out, err := EncodeJoinedCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(JoinedColumns, ",")+"\n", string(out))
}

func TestJoinedColumns_Order(t *testing.T) {
	require.Len(t, JoinedColumns, 15)
	assert.Equal(t, ObservationColumns, JoinedColumns[:12])
	assert.Equal(t, []string{"state", "population", "land_area_sq_mile"}, JoinedColumns[12:])
}
