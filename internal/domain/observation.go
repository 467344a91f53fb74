package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// LocalTimeLayout formats the naive local timestamps in CSV output.
const LocalTimeLayout = "2006-01-02 15:04:05"

// ObservationColumns is the positional column order of the observation table
// and of the headerless transfer row. Writers bind by position, not by name.
var ObservationColumns = []string{
	"city",
	"description",
	"temperature_f",
	"feels_like_f",
	"temp_min_f",
	"temp_max_f",
	"pressure",
	"humidity",
	"wind_speed",
	"time_of_record",
	"sunrise_local",
	"sunset_local",
}

// RawObservation is the subset of the OpenWeatherMap current-weather response
// consumed by the pipeline. Pointer fields distinguish absent keys from zero.
type RawObservation struct {
	ID       int64            `json:"id"`
	Name     *string          `json:"name"`
	Coord    *Coordinates     `json:"coord"`
	Weather  []WeatherSummary `json:"weather"`
	Main     *MainReadings    `json:"main"`
	Wind     *WindReadings    `json:"wind"`
	Dt       *int64           `json:"dt"`
	Timezone *int64           `json:"timezone"`
	Sys      *SunTimes        `json:"sys"`
}

// Coordinates is informational only; it is logged but not persisted.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type WeatherSummary struct {
	Main        string  `json:"main"`
	Description *string `json:"description"`
}

type MainReadings struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	TempMin   *float64 `json:"temp_min"`
	TempMax   *float64 `json:"temp_max"`
	Pressure  *float64 `json:"pressure"`
	Humidity  *float64 `json:"humidity"`
}

type WindReadings struct {
	Speed *float64 `json:"speed"`
}

type SunTimes struct {
	Country string `json:"country"`
	Sunrise *int64 `json:"sunrise"`
	Sunset  *int64 `json:"sunset"`
}

// NormalizedObservation is the flat, unit-converted record persisted to the
// observation store. Temperatures are Fahrenheit with three decimals; the
// three timestamps are naive local wall-clock values (see package docs).
type NormalizedObservation struct {
	City         string    `json:"city"`
	Description  string    `json:"description"`
	TemperatureF float64   `json:"temperature_f"`
	FeelsLikeF   float64   `json:"feels_like_f"`
	TempMinF     float64   `json:"temp_min_f"`
	TempMaxF     float64   `json:"temp_max_f"`
	Pressure     float64   `json:"pressure"`
	Humidity     float64   `json:"humidity"`
	WindSpeed    float64   `json:"wind_speed"`
	TimeOfRecord time.Time `json:"time_of_record"`
	SunriseLocal time.Time `json:"sunrise_local"`
	SunsetLocal  time.Time `json:"sunset_local"`
}

// ParseRawObservation decodes a weather API body. A value of the wrong JSON
// type yields a MalformedInputError naming the field.
func ParseRawObservation(data []byte) (RawObservation, error) {
	var raw RawObservation
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return RawObservation{}, &MalformedInputError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return RawObservation{}, &MalformedInputError{Reason: "invalid JSON document", Err: err}
	}
	return raw, nil
}

// Normalize converts a raw observation into its persisted form. It never
// substitutes defaults: the first absent required field aborts with a
// MalformedInputError.
func Normalize(raw RawObservation) (NormalizedObservation, error) {
	if raw.Name == nil {
		return NormalizedObservation{}, missingField("name")
	}
	if len(raw.Weather) == 0 || raw.Weather[0].Description == nil {
		return NormalizedObservation{}, missingField("weather[0].description")
	}
	if raw.Main == nil {
		return NormalizedObservation{}, missingField("main")
	}
	if raw.Wind == nil || raw.Wind.Speed == nil {
		return NormalizedObservation{}, missingField("wind.speed")
	}
	if raw.Sys == nil {
		return NormalizedObservation{}, missingField("sys")
	}

	readings := []struct {
		field string
		value *float64
	}{
		{"main.temp", raw.Main.Temp},
		{"main.feels_like", raw.Main.FeelsLike},
		{"main.temp_min", raw.Main.TempMin},
		{"main.temp_max", raw.Main.TempMax},
		{"main.pressure", raw.Main.Pressure},
		{"main.humidity", raw.Main.Humidity},
	}
	for _, r := range readings {
		if r.value == nil {
			return NormalizedObservation{}, missingField(r.field)
		}
	}

	epochs := []struct {
		field string
		value *int64
	}{
		{"dt", raw.Dt},
		{"timezone", raw.Timezone},
		{"sys.sunrise", raw.Sys.Sunrise},
		{"sys.sunset", raw.Sys.Sunset},
	}
	for _, e := range epochs {
		if e.value == nil {
			return NormalizedObservation{}, missingField(e.field)
		}
	}

	offset := *raw.Timezone
	return NormalizedObservation{
		City:         *raw.Name,
		Description:  *raw.Weather[0].Description,
		TemperatureF: KelvinToFahrenheit(*raw.Main.Temp),
		FeelsLikeF:   KelvinToFahrenheit(*raw.Main.FeelsLike),
		TempMinF:     KelvinToFahrenheit(*raw.Main.TempMin),
		TempMaxF:     KelvinToFahrenheit(*raw.Main.TempMax),
		Pressure:     *raw.Main.Pressure,
		Humidity:     *raw.Main.Humidity,
		WindSpeed:    *raw.Wind.Speed,
		TimeOfRecord: localTime(*raw.Dt, offset),
		SunriseLocal: localTime(*raw.Sys.Sunrise, offset),
		SunsetLocal:  localTime(*raw.Sys.Sunset, offset),
	}, nil
}

// NormalizeJSON parses and normalizes a weather API body in one step.
func NormalizeJSON(data []byte) (NormalizedObservation, error) {
	raw, err := ParseRawObservation(data)
	if err != nil {
		return NormalizedObservation{}, err
	}
	return Normalize(raw)
}

// localTime bakes the zone offset into the instant and reads the result as a
// UTC wall clock.
func localTime(epoch, offset int64) time.Time {
	return time.Unix(epoch+offset, 0).UTC()
}

func missingField(field string) error {
	return &MalformedInputError{Field: field, Reason: "missing"}
}

// Values returns the record's fields in ObservationColumns order, ready for a
// positional bulk insert.
func (o NormalizedObservation) Values() []any {
	return []any{
		o.City,
		o.Description,
		o.TemperatureF,
		o.FeelsLikeF,
		o.TempMinF,
		o.TempMaxF,
		o.Pressure,
		o.Humidity,
		o.WindSpeed,
		o.TimeOfRecord,
		o.SunriseLocal,
		o.SunsetLocal,
	}
}

// CSVRecord formats the record in ObservationColumns order.
func (o NormalizedObservation) CSVRecord() []string {
	return []string{
		o.City,
		o.Description,
		formatNumber(o.TemperatureF),
		formatNumber(o.FeelsLikeF),
		formatNumber(o.TempMinF),
		formatNumber(o.TempMaxF),
		formatNumber(o.Pressure),
		formatNumber(o.Humidity),
		formatNumber(o.WindSpeed),
		o.TimeOfRecord.Format(LocalTimeLayout),
		o.SunriseLocal.Format(LocalTimeLayout),
		o.SunsetLocal.Format(LocalTimeLayout),
	}
}

// formatNumber renders the shortest representation that round-trips, so
// whole numbers print without a fraction ("1012") and converted temperatures
// keep at most their three decimals.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
