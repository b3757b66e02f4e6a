package weekly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonepulse/clonepulse/internal/dataset"
)

func day(year, month, d int) time.Time {
	return time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC)
}

func rec(ts time.Time, count, uniques int) dataset.DailyRecord {
	return dataset.DailyRecord{Timestamp: ts, Count: count, Uniques: uniques}
}

func TestAggregate_BucketsByMondayWeek(t *testing.T) {
	records := []dataset.DailyRecord{
		rec(day(2024, 6, 10), 10, 5),
		rec(day(2024, 6, 11), 20, 8),
		rec(day(2024, 6, 12), 5, 2),
		rec(day(2024, 6, 17), 7, 3),
		rec(day(2024, 6, 18), 4, 1),
		rec(day(2024, 6, 19), 6, 2),
		rec(day(2024, 6, 20), 3, 3),
	}

	buckets, err := Aggregate(records, day(2024, 6, 24))
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	first := buckets[0]
	assert.Equal(t, day(2024, 6, 10), first.WeekStart)
	assert.Equal(t, 35, first.Count)
	assert.Equal(t, 15, first.Uniques)
	assert.Equal(t, day(2024, 6, 17), first.ReportDate)
	assert.InDelta(t, 35.0, first.CountAvg, 1e-9)
	assert.InDelta(t, 15.0, first.UniquesAvg, 1e-9)

	second := buckets[1]
	assert.Equal(t, day(2024, 6, 17), second.WeekStart)
	assert.Equal(t, 20, second.Count)
	assert.Equal(t, 9, second.Uniques)
	assert.Equal(t, day(2024, 6, 24), second.ReportDate)
	assert.InDelta(t, 27.5, second.CountAvg, 1e-9)
	assert.InDelta(t, 12.0, second.UniquesAvg, 1e-9)
}

func TestAggregate_ExcludesWeekInProgress(t *testing.T) {
	var records []dataset.DailyRecord
	for d := 10; d <= 16; d++ {
		records = append(records, rec(day(2024, 6, d), 1, 1))
	}

	// Two days of the running week on top of the elapsed one.
	records = append(records,
		rec(day(2024, 6, 17), 9, 9),
		rec(day(2024, 6, 18), 9, 9),
	)

	buckets, err := Aggregate(records, day(2024, 6, 19))
	require.NoError(t, err)
	require.Len(t, buckets, 1)

	assert.Equal(t, day(2024, 6, 10), buckets[0].WeekStart)
	assert.Equal(t, 7, buckets[0].Count)
}

func TestAggregate_OnlyRunningWeekYieldsNothing(t *testing.T) {
	var records []dataset.DailyRecord
	for d := 17; d <= 23; d++ {
		records = append(records, rec(day(2024, 6, d), 1, 1))
	}

	buckets, err := Aggregate(records, day(2024, 6, 23))
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestAggregate_InsufficientHistory(t *testing.T) {
	var records []dataset.DailyRecord
	for d := 10; d <= 15; d++ {
		records = append(records, rec(day(2024, 6, d), 2, 1))
	}

	buckets, err := Aggregate(records, day(2024, 6, 24))
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestAggregate_FutureRecordFails(t *testing.T) {
	records := []dataset.DailyRecord{
		rec(day(2024, 6, 10), 1, 1),
		rec(day(2024, 6, 11), 1, 1),
		rec(day(2024, 7, 1), 1, 1),
	}

	buckets, err := Aggregate(records, day(2024, 6, 19))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFutureRecord)
	assert.Contains(t, err.Error(), "row 2")
	assert.Nil(t, buckets)
}

func TestAggregate_TrailingAverageWindow(t *testing.T) {
	// Four full weeks with week sums 7, 14, 21, 28.
	var records []dataset.DailyRecord
	for week := range 4 {
		for d := range 7 {
			records = append(records, rec(day(2024, 6, 3+7*week+d), week+1, 1))
		}
	}

	buckets, err := Aggregate(records, day(2024, 7, 1))
	require.NoError(t, err)
	require.Len(t, buckets, 4)

	wantAvg := []float64{7, 10.5, 14, 21}
	for i, want := range wantAvg {
		assert.InDelta(t, want, buckets[i].CountAvg, 1e-9, "bucket %d", i)
	}

	// Uniques are flat at 7 per week, so every average is 7.
	for i := range buckets {
		assert.InDelta(t, 7.0, buckets[i].UniquesAvg, 1e-9, "bucket %d", i)
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{name: "monday is its own week start", in: day(2024, 6, 10), want: day(2024, 6, 10)},
		{name: "tuesday", in: day(2024, 6, 11), want: day(2024, 6, 10)},
		{name: "saturday", in: day(2024, 6, 15), want: day(2024, 6, 10)},
		{name: "sunday closes the week", in: day(2024, 6, 16), want: day(2024, 6, 10)},
		{name: "year boundary", in: day(2024, 1, 3), want: day(2024, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in))
		})
	}
}
