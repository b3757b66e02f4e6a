package dataset

import "fmt"

// UpdateRecordMarker rewrites the record marker to point at the day with
// the highest clone count. Ties resolve to the earliest day. User
// annotations pass through untouched and keep their order; the marker
// always sits last, so repeated runs over unchanged data are stable.
// With an empty daily history any stale marker is removed.
func UpdateRecordMarker(daily []DailyRecord, annotations []Annotation) []Annotation {
	kept := make([]Annotation, 0, len(annotations)+1)

	for _, ann := range annotations {
		if !ann.IsRecordMarker() {
			kept = append(kept, ann)
		}
	}

	if len(daily) == 0 {
		return kept
	}

	best := daily[0]

	for _, rec := range daily[1:] {
		if rec.Count > best.Count ||
			(rec.Count == best.Count && rec.Timestamp.Before(best.Timestamp)) {
			best = rec
		}
	}

	return append(kept, Annotation{
		Date:  best.Timestamp.UTC().Format(DateLayout),
		Label: fmt.Sprintf("%s %d", recordMarkerPrefix, best.Count),
		Kind:  KindRecordMarker,
	})
}
