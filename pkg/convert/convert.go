// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert provides quick, fault-tolerant conversion utilities.

It wraps standards like [strconv] for the loosely typed values found in upstream
payloads and query strings, where a malformed value means "absent" rather than
an error.
*/
package convert

import (
	"math"
	"strconv"
)

// ToIntD converts a string to an int, returning the provided default if parsing fails or string is empty.
func ToIntD(str string, def int) int {

	// If the string is empty, return the default value
	if str == "" {
		return def
	}

	// Try to parse the string as an integer
	if v, err := strconv.Atoi(str); err == nil {
		return v
	}

	// If parsing fails, return the default value
	return def
}

// LeadingYear extracts the leading 4-digit year of a date string such as
// "2021-06-04". It reports false when the string does not start with four digits.
func LeadingYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}

	year := 0
	for _, c := range date[:4] {
		if c < '0' || c > '9' {
			return 0, false
		}
		year = year*10 + int(c-'0')
	}

	// "20210" is not a date
	if len(date) > 4 && date[4] >= '0' && date[4] <= '9' {
		return 0, false
	}

	return year, true
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
