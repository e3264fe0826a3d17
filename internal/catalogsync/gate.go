// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync

import (
	"time"

	"github.com/taibuivan/ikusare/internal/platform/constants"
)

// RunMeta maps a provider name to its last successful run date (YYYY-MM-DD).
type RunMeta map[string]string

// ShouldRun reports whether provider is due on today.
//
// A provider with no recorded run, or with a value that is not a date, is
// always due. Otherwise it is due once at least minIntervalDays calendar days
// have passed.
func ShouldRun(provider string, meta RunMeta, minIntervalDays int, today time.Time) bool {
	lastRun, ok := meta[provider]
	if !ok || lastRun == "" {
		return true
	}

	days, ok := DaysBetween(lastRun, Today(today))
	if !ok {
		return true
	}
	return days >= minIntervalDays
}

// DaysBetween counts calendar days from one ISO date to another. Both values
// are truncated to their date part, so "2026-03-01T23:59:00Z" counts as
// 2026-03-01. It reports false when either value is not a date.
func DaysBetween(from, to string) (int, bool) {
	start, ok := parseDate(from)
	if !ok {
		return 0, false
	}
	end, ok := parseDate(to)
	if !ok {
		return 0, false
	}
	return int(end.Sub(start).Hours() / 24), true
}

// Today formats now as a UTC calendar date.
func Today(now time.Time) string {
	return now.UTC().Format(constants.DateLayout)
}

func parseDate(value string) (time.Time, bool) {
	if len(value) < len(constants.DateLayout) {
		return time.Time{}, false
	}
	date, err := time.Parse(constants.DateLayout, value[:len(constants.DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
