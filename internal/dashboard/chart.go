// Package dashboard renders the weekly clone series as an HTML chart page,
// or a placeholder page when there is nothing to plot.
package dashboard

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/weekly"
)

const (
	chartWidth  = "100%"
	chartHeight = "500px"
	chartTitle  = "Weekly Clone Metrics (Reported on Following Monday)"
	xAxisName   = "Reporting Date (Monday after week ends)"
	yAxisName   = "Clones"
	pageTitle   = "Weekly Clone Metrics"

	// maxLabelChars bounds annotation labels so stacked marks stay readable
	// at the default chart height.
	maxLabelChars = 20

	ellipsisLen = 3

	dataZoomEndPercent = 100
)

// Placeholder messages shown when no chart can be drawn.
const (
	InsufficientDataMessage = "Not enough data to generate a dashboard.\nOne week's data needed."
	EmptyWindowMessage      = "No data in the selected window."
)

// NoDataForYearMessage formats the placeholder for a year filter that
// matched nothing.
func NoDataForYearMessage(year string) string {
	return "No data for year " + strings.TrimSpace(year) + "."
}

// BuildChart assembles the four-series weekly line chart. Annotations draw
// as vertical mark lines snapped to the report date that covers them, with
// same-date labels joined into one mark.
func BuildChart(w weekly.Window, anns []dataset.Annotation) *charts.Line {
	labels := make([]string, len(w.Buckets))
	counts := make([]opts.LineData, len(w.Buckets))
	countAvgs := make([]opts.LineData, len(w.Buckets))
	uniques := make([]opts.LineData, len(w.Buckets))
	uniqueAvgs := make([]opts.LineData, len(w.Buckets))

	for i, b := range w.Buckets {
		labels[i] = b.ReportDate.Format(dataset.DateLayout)
		counts[i] = opts.LineData{Value: b.Count}
		countAvgs[i] = opts.LineData{Value: round2(b.CountAvg)}
		uniques[i] = opts.LineData{Value: b.Uniques}
		uniqueAvgs[i] = opts.LineData{Value: round2(b.UniquesAvg)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:     chartWidth,
			Height:    chartHeight,
			PageTitle: pageTitle,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: chartTitle,
			Left:  "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Type: "scroll",
			Top:  "8%",
			Left: "center",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      xAxisName,
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Rotate: 45},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: yAxisName}),
		charts.WithGridOpts(opts.Grid{
			Top:          "25%",
			Bottom:       "15%",
			Left:         "5%",
			Right:        "5%",
			ContainLabel: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEndPercent},
			opts.DataZoom{Type: "inside"},
		),
	)

	line.SetXAxis(labels)

	totalOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "circle"}),
	}
	totalOpts = append(totalOpts, annotationMarks(w.Buckets, labels, anns)...)

	line.AddSeries("Total Clones", counts, totalOpts...)
	line.AddSeries("Total Clones (3w Avg)", countAvgs,
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	line.AddSeries("Unique Clones", uniques,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "rect"}))
	line.AddSeries("Unique Clones (3w Avg)", uniqueAvgs,
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dotted"}))

	return line
}

// annotationMarks converts annotations into mark line options on the
// category axis. Labels landing on the same category are joined so they
// never overdraw each other.
func annotationMarks(buckets []weekly.Bucket, labels []string, anns []dataset.Annotation) []charts.SeriesOpts {
	if len(anns) == 0 || len(buckets) == 0 {
		return nil
	}

	grouped := make(map[int][]string)
	order := make([]int, 0, len(anns))

	for _, ann := range anns {
		day, err := ann.ParseDate()
		if err != nil {
			continue
		}

		idx := markCategory(day, buckets)
		if _, seen := grouped[idx]; !seen {
			order = append(order, idx)
		}

		grouped[idx] = append(grouped[idx], truncateOnWordBoundary(ann.Label, maxLabelChars))
	}

	if len(order) == 0 {
		return nil
	}

	items := make([]opts.MarkLineNameXAxisItem, 0, len(order))
	for _, idx := range order {
		items = append(items, opts.MarkLineNameXAxisItem{
			Name:  strings.Join(grouped[idx], " / "),
			XAxis: labels[idx],
		})
	}

	return []charts.SeriesOpts{
		charts.WithMarkLineNameXAxisItemOpts(items...),
		charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
			Symbol:    []string{"none", "none"},
			Label:     &opts.Label{Show: opts.Bool(true), Formatter: "{b}"},
			LineStyle: &opts.LineStyle{Type: "dotted", Color: "gray"},
		}),
	}
}

// markCategory returns the index of the report date that covers day: the
// first one on or after it, falling back to the last when the data ends
// before the requested range does.
func markCategory(day time.Time, buckets []weekly.Bucket) int {
	for i, b := range buckets {
		if !b.ReportDate.Before(day) {
			return i
		}
	}

	return len(buckets) - 1
}

// truncateOnWordBoundary shortens text to at most maxChars runes, cutting
// between words when it can and marking the cut with an ellipsis. A single
// word longer than the budget is cut mid-word.
func truncateOnWordBoundary(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}

	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	budget := maxChars - ellipsisLen
	kept := make([]string, 0, 4)
	total := 0

	for _, word := range strings.Fields(text) {
		add := utf8.RuneCountInString(word)
		if len(kept) > 0 {
			add++
		}

		if total+add > budget {
			break
		}

		kept = append(kept, word)
		total += add
	}

	if len(kept) == 0 {
		return string([]rune(text)[:budget]) + "..."
	}

	return strings.Join(kept, " ") + "..."
}

// round2 keeps tooltip values readable for thirds from the rolling mean.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
