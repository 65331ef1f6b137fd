package ingest

import (
	"strings"
	"time"
)

// Accepted period header layouts, tried in order.
var periodLayouts = []string{
	"2006-01",
	"01/2006",
	"2006/01",
	"Jan-06",
	"06-Jan",
	"January 2006",
	"2006 January",
}

const (
	minPeriodYear = 2020
	maxPeriodYear = 2099
)

// ParsePeriodHeader parses a spreadsheet column header like "Jan-24" or
// "2024-01" into the first day of that month in UTC. Two-digit years always
// mean 20xx. Headers outside 2020..2099 are rejected, which filters out
// non-period columns such as "Notes".
func ParsePeriodHeader(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range periodLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		year := t.Year()
		if year < 2000 {
			year += 100
		}
		if year < minPeriodYear || year > maxPeriodYear {
			continue
		}
		return time.Date(year, t.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
