package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"02 Jan 2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01",
	"2006",
}

// ParseDate accepts the date shapes seen in the upstream metadata: ISO dates
// and timestamps, US style dates, spelled-out months and epoch numbers. The
// result is always UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Shorter digit runs are years or compact YYYYMMDD dates.
	if len(s) >= 9 {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return EpochToTime(n), nil
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// EpochToTime converts an epoch number to a UTC time. Values longer than nine
// digits are milliseconds and are floored to whole seconds.
func EpochToTime(n int64) time.Time {
	if len(strconv.FormatInt(n, 10)) > 9 {
		n = floorDiv(n, 1000)
	}
	return time.Unix(n, 0).UTC()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
