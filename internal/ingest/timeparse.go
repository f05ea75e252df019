package ingest

import (
	"strings"
	"time"
)

// twoDigitYearPivot defines how 2-digit years are interpreted: parsed
// years more than this many years in the future are pushed back a
// century. Example with pivot=20 in 2026: "48" is 1948, "24" is 2024.
var twoDigitYearPivot = 20

// Date layouts split by year format so 2-digit years get the pivot
// adjustment and unambiguous 4-digit layouts are tried first.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ParseTimestamp parses a calendar date or date-time in any of the
// supported layouts. It is the single definition of "parses as a
// timestamp" shared by the inferencer and the store value converters.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + twoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}
