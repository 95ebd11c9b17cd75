package medication

import (
	"fmt"
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

// MaxOccurrences bounds a single recurrence expansion (five years of daily
// doses).
const MaxOccurrences = 1830

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC so that day
// arithmetic never crosses a DST boundary.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func ValidTimeOfDay(s string) bool {
	return timeOfDayPattern.MatchString(s)
}

func stepDays(rt RecurrenceType) int {
	switch rt {
	case RecurrenceDaily:
		return 1
	case RecurrenceWeekly:
		return 7
	}
	return 0
}

// Occurrences counts the dates Expand would produce for a daily or weekly
// rule. An end before the start yields zero.
func Occurrences(start, end time.Time, rt RecurrenceType) int {
	step := stepDays(rt)
	if step == 0 {
		return 1
	}
	if end.Before(start) {
		return 0
	}
	days := int(end.Sub(start).Hours() / 24)
	return days/step + 1
}

// Expand lists the scheduled dates for a rule, start and end inclusive.
// RecurrenceNone yields start alone.
func Expand(start, end time.Time, rt RecurrenceType) ([]time.Time, error) {
	step := stepDays(rt)
	if step == 0 {
		if rt != RecurrenceNone {
			return nil, fmt.Errorf("unsupported recurrence type %q", rt)
		}
		return []time.Time{start}, nil
	}

	n := Occurrences(start, end, rt)
	if n > MaxOccurrences {
		return nil, fmt.Errorf("recurrence produces %d doses, more than the limit of %d", n, MaxOccurrences)
	}

	dates := make([]time.Time, 0, n)
	for d := start; !d.After(end); d = d.AddDate(0, 0, step) {
		dates = append(dates, d)
	}
	return dates, nil
}
