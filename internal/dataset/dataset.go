// Package dataset defines the persisted clone telemetry dataset: the daily
// history, its annotations, and the JSON snapshot store.
package dataset

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar day format used by annotation dates.
const DateLayout = "2006-01-02"

// KindRecordMarker tags the single system-maintained annotation that points
// at the highest recorded daily clone count. User annotations carry no kind.
const KindRecordMarker = "record"

// recordMarkerPrefix identifies record markers written before the kind
// field existed.
const recordMarkerPrefix = "Daily max:"

// DailyRecord is one calendar day of clone telemetry. Timestamp is always
// midnight UTC of the day it describes.
type DailyRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	Uniques   int       `json:"uniques"`
}

// Annotation is a dated label rendered on the weekly dashboard.
type Annotation struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Kind  string `json:"kind,omitempty"`
}

// ParseDate parses the annotation's calendar day.
func (a Annotation) ParseDate() (time.Time, error) {
	day, err := time.Parse(DateLayout, a.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse annotation date: %w", err)
	}

	return day, nil
}

// IsRecordMarker reports whether the annotation is the system-maintained
// record marker, by kind or by the legacy label prefix.
func (a Annotation) IsRecordMarker() bool {
	return a.Kind == KindRecordMarker || strings.HasPrefix(a.Label, recordMarkerPrefix)
}

// Dataset is the persisted aggregate state. Daily is sorted ascending by
// day and holds at most one record per UTC day.
type Dataset struct {
	TotalClones  int           `json:"total_clones"`
	UniqueClones int           `json:"unique_clones"`
	Daily        []DailyRecord `json:"daily"`
	Annotations  []Annotation  `json:"annotations"`
}

// RecomputeTotals rebuilds the lifetime counters from the full daily history.
func (d *Dataset) RecomputeTotals() {
	total := 0
	uniques := 0

	for _, rec := range d.Daily {
		total += rec.Count
		uniques += rec.Uniques
	}

	d.TotalClones = total
	d.UniqueClones = uniques
}

// DayOf truncates a timestamp to midnight UTC of its calendar day.
func DayOf(ts time.Time) time.Time {
	u := ts.UTC()

	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
