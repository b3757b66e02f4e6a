// Package weekly folds the daily clone history into Monday-aligned weekly
// buckets and selects the contiguous window a report displays.
//
// Each bucket covers one Monday through Sunday week and is anchored on the
// chart at its report date, the Monday after the week ends, so a week is
// only reported once all seven days could have been collected. Weeks still
// in progress are excluded.
package weekly

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/clonepulse/clonepulse/internal/dataset"
)

// MinDailyRecords is the smallest daily history that yields a weekly series.
// Below this the caller renders a placeholder instead of a chart.
const MinDailyRecords = 7

// trailingWindow is the bucket count for the rolling averages, inclusive of
// the bucket being averaged.
const trailingWindow = 3

// ErrFutureRecord reports a stored daily record dated after the current run.
// The store is append-only from the ingestion side, so a future date means
// the file was edited by hand or the clock is wrong.
var ErrFutureRecord = errors.New("record timestamp is in the future")

// Bucket is one fully elapsed Monday through Sunday week of clone activity.
type Bucket struct {
	WeekStart  time.Time
	Count      int
	Uniques    int
	CountAvg   float64
	UniquesAvg float64
	ReportDate time.Time
}

// Aggregate folds daily records into weekly buckets sorted by report date.
//
// Records dated after now abort the aggregation with the offending row
// index. Fewer than MinDailyRecords records, or a history that leaves no
// fully elapsed week, returns an empty series and no error; the caller
// decides how to present the gap.
//
// The rolling averages are computed over the full elapsed series before any
// window is applied, so a window's first buckets keep the averages their
// predecessors contributed to.
func Aggregate(records []dataset.DailyRecord, now time.Time) ([]Bucket, error) {
	for i, rec := range records {
		if rec.Timestamp.After(now) {
			return nil, fmt.Errorf("row %d: %w: %s",
				i, ErrFutureRecord, rec.Timestamp.Format(time.RFC3339))
		}
	}

	if len(records) < MinDailyRecords {
		return nil, nil
	}

	sums := make(map[time.Time]*Bucket)

	for _, rec := range records {
		ws := WeekStart(dataset.DayOf(rec.Timestamp))

		b, ok := sums[ws]
		if !ok {
			b = &Bucket{WeekStart: ws}
			sums[ws] = b
		}

		b.Count += rec.Count
		b.Uniques += rec.Uniques
	}

	today := dataset.DayOf(now)
	buckets := make([]Bucket, 0, len(sums))

	for _, b := range sums {
		// The week ending on weekStart+6 must be fully in the past.
		if !b.WeekStart.AddDate(0, 0, 6).Before(today) {
			continue
		}

		buckets = append(buckets, *b)
	}

	if len(buckets) == 0 {
		return nil, nil
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].WeekStart.Before(buckets[j].WeekStart)
	})

	for i := range buckets {
		start := max(0, i-trailingWindow+1)
		window := buckets[start : i+1]

		var counts, uniques float64

		for _, b := range window {
			counts += float64(b.Count)
			uniques += float64(b.Uniques)
		}

		n := float64(len(window))
		buckets[i].CountAvg = counts / n
		buckets[i].UniquesAvg = uniques / n
		buckets[i].ReportDate = buckets[i].WeekStart.AddDate(0, 0, 7)
	}

	return buckets, nil
}

// WeekStart returns the Monday on or before day.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7

	return day.AddDate(0, 0, -offset)
}
