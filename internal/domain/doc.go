// Package domain models OpenWeatherMap current-weather observations and the
// static city reference table they are joined against.
//
// # Data Source
//
// Observations come from the OpenWeatherMap "current weather" endpoint
// (GET /data/2.5/weather?q=<city>&appid=<key>). The response is requested
// without a "units" parameter, so every temperature arrives in Kelvin.
//
// Consumed fields:
//
//	name                    city name, used verbatim as the join key
//	weather[0].description  free-text condition, e.g. "broken clouds"
//	main.temp               Kelvin
//	main.feels_like         Kelvin
//	main.temp_min           Kelvin
//	main.temp_max           Kelvin
//	main.pressure           hPa
//	main.humidity           percent
//	wind.speed              m/s
//	dt                      observation time, Unix seconds UTC
//	timezone                shift from UTC in seconds, e.g. -21600 for CST
//	sys.sunrise, sys.sunset Unix seconds UTC
//
// # Local Time
//
// Local timestamps are derived as time.Unix(epoch+timezone, 0).UTC(): the
// offset is baked into the instant and the result is read as a naive wall
// clock. The time.Time values therefore carry the UTC location even though
// they describe city-local time. Existing tables and snapshots depend on this
// representation, so it must not be replaced with real zone handling.
//
// # Temperature Rounding
//
// Fahrenheit values are rounded to three decimals with round-half-to-even
// applied to the exact binary value (see [KelvinToFahrenheit]).
//
// # Reference Table
//
// The city lookup file is a CSV with a header row and four columns:
// city, state, population, land_area_sq_mile. It is reloaded wholesale on
// every run. Joins match city names exactly: no trimming, no case folding.
//
// # Snapshot Naming
//
// Joined exports are named joined_weather_data_<ddMMyyyyHHmmss>.csv using the
// wall clock at publish time. Day precedes month, so names are unique per
// second but do not sort chronologically.
package domain
