package weekly

import (
	"log/slog"
	"sort"
	"time"

	"github.com/clonepulse/clonepulse/internal/dataset"
)

// FilterAnnotations keeps the annotations whose date falls inside the
// window's plot range. Future-dated annotations are dropped with a warning
// no matter the window, and an unparseable date is dropped too in case the
// dataset was edited by hand. Out-of-window drops are reported once as a
// count.
//
// The result is sorted by date, preserving input order within a date, which
// is the stacking order the chart renders same-day labels in.
func FilterAnnotations(anns []dataset.Annotation, w Window, today time.Time, logger *slog.Logger) []dataset.Annotation {
	if logger == nil {
		logger = slog.Default()
	}

	today = dataset.DayOf(today)
	kept := make([]dataset.Annotation, 0, len(anns))
	outside := 0

	for i, ann := range anns {
		day, err := ann.ParseDate()
		if err != nil {
			logger.Warn("skipping annotation with invalid date",
				"index", i, "date", ann.Date)

			continue
		}

		if day.After(today) {
			logger.Warn("skipping annotation with future date",
				"index", i, "date", ann.Date)

			continue
		}

		if day.Before(w.PlotStart) || day.After(w.PlotEnd) {
			outside++

			continue
		}

		kept = append(kept, ann)
	}

	if outside > 0 {
		logger.Info("skipped annotations outside window",
			"count", outside,
			"from", w.PlotStart.Format(dataset.DateLayout),
			"to", w.PlotEnd.Format(dataset.DateLayout))
	}

	// ISO dates compare lexicographically, so no reparse is needed.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date < kept[j].Date
	})

	return kept
}
