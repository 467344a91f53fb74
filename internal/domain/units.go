package domain

import "strconv"

const absoluteZeroCelsius = 273.15

// KelvinToFahrenheit converts k to Fahrenheit rounded to three decimals.
//
// Rounding is applied to the exact binary value of the unrounded result with
// ties going to the even digit, which is what strconv's fixed-precision
// formatting does. Physically invalid input (negative Kelvin, NaN) is not
// rejected.
func KelvinToFahrenheit(k float64) float64 {
	// The explicit conversion forces the product to round before the add,
	// so no platform fuses the two into an FMA.
	f := float64((k-absoluteZeroCelsius)*(9.0/5.0)) + 32
	return roundTo3(f)
}

func roundTo3(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return r
}
