package weekly

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clonepulse/clonepulse/internal/dataset"
)

// Selection errors surface to the CLI as user errors.
var (
	ErrMalformedYear    = errors.New("year must be in YYYY format")
	ErrFutureYear       = errors.New("year is in the future")
	ErrInvalidStartDate = errors.New("invalid start date")
	ErrFutureStart      = errors.New("start date is in the future")
	ErrNegativeWeeks    = errors.New("weeks must be non-negative")
)

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// Options selects the slice of the weekly series a report displays. Exactly
// one mode applies: Year wins over Start, Start wins over the trailing
// default.
type Options struct {
	// Year filters buckets to one calendar year ("YYYY"). Overrides Start
	// and Weeks.
	Year string

	// Start is the inclusive window start ("YYYY-MM-DD"). With Weeks it
	// spans an explicit date range.
	Start string

	// Weeks is the window length. In trailing mode it is the number of most
	// recent buckets to keep.
	Weeks int
}

// EmptyReason distinguishes the placeholder a report renders when the
// selected window holds no buckets.
type EmptyReason int

const (
	// NotEmpty marks a window with data to plot.
	NotEmpty EmptyReason = iota

	// EmptyYearFilter means no bucket's week fell inside the requested year.
	EmptyYearFilter

	// EmptyRange means no bucket's report date fell inside the selected
	// range.
	EmptyRange
)

// Window is a contiguous slice of the weekly series plus the inclusive date
// range used to filter annotations. PlotStart and PlotEnd are only
// meaningful when Reason is NotEmpty.
type Window struct {
	Buckets   []Bucket
	PlotStart time.Time
	PlotEnd   time.Time
	Reason    EmptyReason
}

// Empty reports whether the window has nothing to plot.
func (w Window) Empty() bool {
	return w.Reason != NotEmpty
}

// SelectWindow applies the selection mode from opts to buckets. The input
// must be sorted ascending by report date, which is how Aggregate returns
// it. Buckets is never mutated; the returned window shares its backing
// array.
func SelectWindow(buckets []Bucket, opts Options, today time.Time) (Window, error) {
	if opts.Weeks < 0 {
		return Window{}, fmt.Errorf("%w: got %d", ErrNegativeWeeks, opts.Weeks)
	}

	today = dataset.DayOf(today)

	if opts.Year != "" {
		return selectYear(buckets, opts.Year, today)
	}

	if opts.Start != "" {
		return selectRange(buckets, opts.Start, opts.Weeks, today)
	}

	return selectTrailing(buckets, opts.Weeks), nil
}

func selectYear(buckets []Bucket, yearOpt string, today time.Time) (Window, error) {
	raw := strings.TrimSpace(yearOpt)
	if !yearPattern.MatchString(raw) {
		return Window{}, fmt.Errorf("%w: got %q", ErrMalformedYear, yearOpt)
	}

	year, err := strconv.Atoi(raw)
	if err != nil {
		return Window{}, fmt.Errorf("%w: got %q", ErrMalformedYear, yearOpt)
	}

	if year > today.Year() {
		return Window{}, fmt.Errorf("%w: %d", ErrFutureYear, year)
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var kept []Bucket

	for _, b := range buckets {
		if b.WeekStart.Before(yearStart) || b.WeekStart.After(yearEnd) {
			continue
		}

		kept = append(kept, b)
	}

	if len(kept) == 0 {
		return Window{Reason: EmptyYearFilter}, nil
	}

	return Window{
		Buckets:   kept,
		PlotStart: kept[0].ReportDate,
		PlotEnd:   kept[len(kept)-1].ReportDate,
	}, nil
}

func selectRange(buckets []Bucket, startOpt string, weeks int, today time.Time) (Window, error) {
	plotStart, err := time.ParseInLocation(dataset.DateLayout, startOpt, time.UTC)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidStartDate, startOpt)
	}

	if plotStart.After(today) {
		return Window{}, fmt.Errorf("%w: %s", ErrFutureStart, startOpt)
	}

	// weeks buckets fit in [start, start+7*(weeks-1)]; weeks=0 puts the end
	// before the start, which selects nothing.
	plotEnd := plotStart.AddDate(0, 0, 7*(weeks-1))

	var kept []Bucket

	for _, b := range buckets {
		if b.ReportDate.Before(plotStart) || b.ReportDate.After(plotEnd) {
			continue
		}

		kept = append(kept, b)
	}

	if len(kept) == 0 {
		return Window{Reason: EmptyRange}, nil
	}

	return Window{
		Buckets:   kept,
		PlotStart: plotStart,
		PlotEnd:   plotEnd,
	}, nil
}

func selectTrailing(buckets []Bucket, weeks int) Window {
	if weeks > len(buckets) {
		weeks = len(buckets)
	}

	kept := buckets[len(buckets)-weeks:]
	if len(kept) == 0 {
		return Window{Reason: EmptyRange}
	}

	return Window{
		Buckets:   kept,
		PlotStart: kept[0].ReportDate,
		PlotEnd:   kept[len(kept)-1].ReportDate,
	}
}
