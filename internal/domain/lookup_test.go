package domain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLookupCSV_Fixture(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "..", "data", "mock", "us_city.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := ParseLookupCSV(f)
	require.NoError(t, err)
	require.Len(t, records, 10)

	assert.Contains(t, records, LookupRecord{City: "Houston", State: "Texas", Population: 2304580, LandAreaSqMile: 640.4})
	assert.Contains(t, records, LookupRecord{City: "Phoenix", State: "Arizona", Population: 1608139, LandAreaSqMile: 518})
}

func TestParseLookupCSV_HeaderNamesNotEnforced(t *testing.T) {
	src := "city,state,census_2020,land_area_sq_mile_2020\nHouston,Texas,2304580.0,640.4\n"
	records, err := ParseLookupCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2304580), records[0].Population)
}

func TestParseLookupCSV_KeepsCityVerbatim(t *testing.T) {
	src := "city,state,population,land_area_sq_mile\n\" Houston\",Texas,1,2\n"
	records, err := ParseLookupCSV(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, " Houston", records[0].City)
}

func TestParseLookupCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{name: "empty file", src: "", field: "header"},
		{name: "short row", src: "city,state,population,land_area_sq_mile\nHouston,Texas,1\n", field: "line 2"},
		{name: "blank city", src: "city,state,population,land_area_sq_mile\n,Texas,1,2\n", field: "line 2 city"},
		{name: "blank state", src: "city,state,population,land_area_sq_mile\nHouston,,1,2\n", field: "line 2 state"},
		{name: "fractional population", src: "city,state,population,land_area_sq_mile\nHouston,Texas,1.5,2\n", field: "line 2 population"},
		{name: "bad area", src: "city,state,population,land_area_sq_mile\nHouston,Texas,1,big\n", field: "line 2 land_area_sq_mile"},
		{name: "huge population", src: "city,state,population,land_area_sq_mile\nHouston,Texas,1e30,640.4\n", field: "line 2 population"},
		{name: "population just past int64", src: "city,state,population,land_area_sq_mile\nHouston,Texas,9.3e18,640.4\n", field: "line 2 population"},
		{name: "infinite population", src: "city,state,population,land_area_sq_mile\nHouston,Texas,Inf,640.4\n", field: "line 2 population"},
		{name: "NaN population", src: "city,state,population,land_area_sq_mile\nHouston,Texas,NaN,640.4\n", field: "line 2 population"},
		{name: "NaN area", src: "city,state,population,land_area_sq_mile\nHouston,Texas,1,NaN\n", field: "line 2 land_area_sq_mile"},
		{name: "infinite area", src: "city,state,population,land_area_sq_mile\nHouston,Texas,1,-Inf\n", field: "line 2 land_area_sq_mile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLookupCSV(strings.NewReader(tt.src))
			var malformed *MalformedInputError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.field, malformed.Field)
		})
	}
}

func TestParseLookupCSV_HeaderOnly(t *testing.T) {
	records, err := ParseLookupCSV(strings.NewReader("city,state,population,land_area_sq_mile\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}
