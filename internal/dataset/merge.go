package dataset

import (
	"sort"
	"time"
)

// MergeDaily merges incoming records into the existing daily history.
// Records are keyed by UTC day; an incoming record replaces the stored one
// for the same day (upstream corrections win), untouched days survive.
// The result is sorted ascending by day, so re-merging the same snapshot
// reproduces the history byte for byte.
func MergeDaily(existing, incoming []DailyRecord) []DailyRecord {
	byDay := make(map[time.Time]DailyRecord, len(existing)+len(incoming))

	for _, rec := range existing {
		rec.Timestamp = DayOf(rec.Timestamp)
		byDay[rec.Timestamp] = rec
	}

	for _, rec := range incoming {
		rec.Timestamp = DayOf(rec.Timestamp)
		byDay[rec.Timestamp] = rec
	}

	merged := make([]DailyRecord, 0, len(byDay))
	for _, rec := range byDay {
		merged = append(merged, rec)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	return merged
}
