package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// displayLimit is the largest outlier set printed in full.
	displayLimit = 10
	// displayEdge is how many rows are shown at each end of a longer set.
	displayEdge = 5
)

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatOutlierSet renders the total count and the rows of set. Sets longer
// than 10 rows show the first 5 and the last 5 separated by an ellipsis.
func FormatOutlierSet(set OutlierSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total outliers: %d\n", set.Len())
	if set.Len() == 0 {
		return b.String()
	}
	withZ := set.Method == MethodZScore
	if withZ {
		fmt.Fprintf(&b, "%8s  %14s  %10s\n", "row", "outliers", "Z-score")
	} else {
		fmt.Fprintf(&b, "%8s  %14s\n", "row", set.Column)
	}
	line := func(o Outlier) {
		if withZ && o.Z != nil {
			fmt.Fprintf(&b, "%8d  %14.6g  %10.4f\n", o.Row, o.Value, *o.Z)
			return
		}
		fmt.Fprintf(&b, "%8d  %14.6g\n", o.Row, o.Value)
	}
	if set.Len() > displayLimit {
		for _, o := range set.Rows[:displayEdge] {
			line(o)
		}
		b.WriteString(".\n.\n")
		for _, o := range set.Rows[set.Len()-displayEdge:] {
			line(o)
		}
		return b.String()
	}
	for _, o := range set.Rows {
		line(o)
	}
	return b.String()
}

// OutliersMarkdown renders read-only outlier analysis for one column.
func OutliersMarkdown(res ColumnResult, requested Method) string {
	var b strings.Builder
	method := requested
	if res.Err == nil {
		method = res.Bounds.Method
	}
	fmt.Fprintf(&b, "[OUTLIERS in %s via %s]\n", safeName(res.Column), method)
	if res.Err != nil {
		fmt.Fprintf(&b, "error: %v\n", res.Err)
		return b.String()
	}
	if res.Bounds.Substituted {
		b.WriteString("Using the Z score method as custom intervals were not provided\n")
	}
	fmt.Fprintf(&b, "Outlier limits:\nlower limit: %s\nupper limit: %s\n\n", formatValue(res.Bounds.Lower), formatValue(res.Bounds.Upper))
	if res.Bounds.Inverted() {
		b.WriteString("warning: lower limit is above upper limit; values between them are the only inliers\n")
	}
	b.WriteString(FormatOutlierSet(res.Outliers))
	return b.String()
}

// HandledMarkdown renders a mutation report with before/after histograms.
func HandledMarkdown(rep *MutationReport, bins int) string {
	var b strings.Builder
	verb := "Compressed"
	if rep.Action == ActionRemove {
		verb = "Removed"
	}
	fmt.Fprintf(&b, "[HANDLED: %s via %s]\n", safeName(rep.Column), rep.Bounds.Method)
	if rep.Bounds.Substituted {
		b.WriteString("Using the Z score method as custom intervals were not provided\n")
	}
	fmt.Fprintf(&b, "Limits: [%s, %s]\n", formatValue(rep.Bounds.Lower), formatValue(rep.Bounds.Upper))
	fmt.Fprintf(&b, "%s the following outliers in %s:\n", verb, rep.Column)
	b.WriteString(FormatOutlierSet(rep.Handled))
	if rep.Action == ActionCompress {
		fmt.Fprintf(&b, "Cells clipped: %d\n", rep.Affected)
	} else {
		fmt.Fprintf(&b, "Rows removed: %d", rep.Affected)
		if rep.Skipped > 0 {
			fmt.Fprintf(&b, " (%d already gone)", rep.Skipped)
		}
		b.WriteString("\n")
	}
	lo, hi := rangeOf(rep.Before)
	before := Histogram(rep.Before, bins, lo, hi)
	after := Histogram(rep.After, bins, lo, hi)
	if len(before.Counts) > 0 {
		b.WriteString("\n| bin | before | after |\n| --- | ---: | ---: |\n")
		for i := range before.Counts {
			a := 0
			if i < len(after.Counts) {
				a = after.Counts[i]
			}
			fmt.Fprintf(&b, "| %.4g – %.4g | %d | %d |\n", before.Edges[i], before.Edges[i+1], before.Counts[i], a)
		}
	}
	return b.String()
}

// HistogramMarkdown renders bin counts as a table.
func HistogramMarkdown(column string, h HistogramBins) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[HISTOGRAM: %s]\n", safeName(column))
	if len(h.Counts) == 0 {
		b.WriteString("(no values)\n")
		return b.String()
	}
	b.WriteString("| bin | count |\n| --- | ---: |\n")
	for i, n := range h.Counts {
		fmt.Fprintf(&b, "| %.4g – %.4g | %d |\n", h.Edges[i], h.Edges[i+1], n)
	}
	return b.String()
}

func rangeOf(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// SummaryMarkdown renders the five point summary of a column.
func SummaryMarkdown(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "5 point summary for: %s\n", safeName(s.Column))
	fmt.Fprintf(&b, "- min: %.6g\n- 25%%: %.6g\n- 50%%: %.6g\n- 75%%: %.6g\n- max: %.6g\n", s.Min, s.Q1, s.Median, s.Q3, s.Max)
	fmt.Fprintf(&b, "(count %d, missing %d, mean %.6g, std %.6g)\n", s.Count, s.Missing, s.Mean, s.Std)
	return b.String()
}

// ValueCountsMarkdown renders a frequency table for a categorical column.
func ValueCountsMarkdown(column string, counts []CategoryCount) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[VALUE COUNTS: %s]\n", safeName(column))
	fmt.Fprintf(&b, "No. of UNIQUE values: %d\n", len(counts))
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	for _, c := range counts {
		share := 0.0
		if total > 0 {
			share = float64(c.Count) * 100 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", safeVal(c.Value), c.Count, share)
	}
	return b.String()
}

// Markdown renders the correlation matrix and its strongest pairs.
func (m *CorrMatrix) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[CORRELATIONS: %s]\n", m.Method)
	if len(m.Columns) < 2 {
		b.WriteString("fewer than two numeric columns\n")
		return b.String()
	}
	b.WriteString("| |")
	for _, c := range m.Columns {
		b.WriteString(" " + safeVal(c) + " |")
	}
	b.WriteString("\n|---|")
	for range m.Columns {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	for i, c := range m.Columns {
		b.WriteString("| " + safeVal(c) + " |")
		for j := range m.Columns {
			fmt.Fprintf(&b, " %.2f |", m.Values[i][j])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, p := range m.TopPairs(10) {
		fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
	}
	return b.String()
}

// MutualInfoMarkdown renders scores as a ranked list.
func MutualInfoMarkdown(target string, scores []MIScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[MUTUAL INFORMATION vs %s]\n", safeName(target))
	for _, s := range scores {
		kind := "continuous"
		if s.Discrete {
			kind = "discrete"
		}
		fmt.Fprintf(&b, "- %s: %.4f (%s)\n", safeName(s.Feature), s.Score, kind)
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
