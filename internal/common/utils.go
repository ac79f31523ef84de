package common

import "strings"

// NormalizeCity trims and lower-cases a city name so that equivalent spellings
// share one cache key. Inner runs of whitespace collapse to a single space.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}
