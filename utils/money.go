package utils

import (
	"fmt"
	"math"
)

func Round(value float64) float64 {
	return math.Round(value*100) / 100
}

// FormatAmount renders an amount the way the gateway expects it: two
// decimals, no thousands separator.
func FormatAmount(value float64) string {
	return fmt.Sprintf("%.2f", Round(value))
}
