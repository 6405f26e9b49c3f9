// Package streak computes consecutive-day activity streaks over timestamped
// events. Days are bucketed in UTC so a streak doesn't depend on the server's
// local zone.
package streak

import "time"

const dayKeyLayout = "2006-01-02"

// DayKey truncates a timestamp to its UTC calendar day.
func DayKey(ts time.Time) string {
	return ts.UTC().Format(dayKeyLayout)
}

// UniqueActiveDays deduplicates event timestamps into UTC day buckets.
// Zero timestamps are treated as absent days, not as an error.
func UniqueActiveDays(events []time.Time) map[string]bool {
	days := make(map[string]bool, len(events))
	for _, ts := range events {
		if ts.IsZero() {
			continue
		}
		days[DayKey(ts)] = true
	}
	return days
}

// CurrentStreak walks backward day-by-day from today (inclusive) and counts
// consecutive active days, stopping at the first gap. Today's partial day
// counts if any event lands on it; a quiet today does not break yesterday's
// run. Always >= 0.
func CurrentStreak(events []time.Time, today time.Time) int {
	days := UniqueActiveDays(events)
	if len(days) == 0 {
		return 0
	}

	day := today.UTC().Truncate(24 * time.Hour)
	if !days[DayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}

	count := 0
	for days[DayKey(day)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}

// LongestStreak returns the longest run of consecutive active days anywhere
// in the event history.
func LongestStreak(events []time.Time) int {
	days := UniqueActiveDays(events)
	longest := 0
	for key := range days {
		day, err := time.Parse(dayKeyLayout, key)
		if err != nil {
			continue
		}
		// Only count runs from their first day.
		if days[DayKey(day.AddDate(0, 0, -1))] {
			continue
		}
		run := 0
		for days[DayKey(day)] {
			run++
			day = day.AddDate(0, 0, 1)
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
