package convert

import (
	"math"
)

func TwoDecimals(number float64) float64 {
	return RoundFloat64(number, 2)
}

// RoundFloat64 rounds to the given number of decimals. Prices are CHF/kWh
// with sub-rappen resolution, so presentation values usually round to six.
func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(int(decimals))) / math.Pow10(int(decimals))
}
