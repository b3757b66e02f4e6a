package dataset_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonepulse/clonepulse/internal/dataset"
)

func TestDayOf(t *testing.T) {
	t.Parallel()

	est := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "already midnight utc",
			in:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "midday truncates",
			in:   time.Date(2024, 6, 1, 13, 45, 12, 999, time.UTC),
			want: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "zone converts to utc first",
			in:   time.Date(2024, 6, 1, 22, 0, 0, 0, est),
			want: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, dataset.DayOf(tt.in))
		})
	}
}

func TestRecomputeTotals(t *testing.T) {
	t.Parallel()

	ds := dataset.Dataset{
		TotalClones:  999,
		UniqueClones: 999,
		Daily: []dataset.DailyRecord{
			{Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Count: 10, Uniques: 5},
			{Timestamp: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), Count: 20, Uniques: 8},
		},
	}

	ds.RecomputeTotals()

	assert.Equal(t, 30, ds.TotalClones)
	assert.Equal(t, 13, ds.UniqueClones)
}

func TestRecomputeTotals_EmptyHistory(t *testing.T) {
	t.Parallel()

	ds := dataset.Dataset{TotalClones: 42, UniqueClones: 7}
	ds.RecomputeTotals()

	assert.Zero(t, ds.TotalClones)
	assert.Zero(t, ds.UniqueClones)
}

func TestAnnotation_ParseDate(t *testing.T) {
	t.Parallel()

	ann := dataset.Annotation{Date: "2024-06-02", Label: "release"}

	day, err := ann.ParseDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), day)

	_, err = dataset.Annotation{Date: "06/02/2024"}.ParseDate()
	require.Error(t, err)
}

func TestAnnotation_IsRecordMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ann  dataset.Annotation
		want bool
	}{
		{
			name: "tagged marker",
			ann:  dataset.Annotation{Date: "2024-06-02", Label: "Daily max: 20", Kind: dataset.KindRecordMarker},
			want: true,
		},
		{
			name: "legacy marker by label prefix",
			ann:  dataset.Annotation{Date: "2024-06-02", Label: "Daily max: 20"},
			want: true,
		},
		{
			name: "user annotation",
			ann:  dataset.Annotation{Date: "2024-06-02", Label: "v2.0 release"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.ann.IsRecordMarker())
		})
	}
}
