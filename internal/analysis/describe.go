package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary is the describe-style summary of a numeric column.
type Summary struct {
	Column  string  `json:"column" yaml:"column"`
	Count   int     `json:"count" yaml:"count"`
	Missing int     `json:"missing" yaml:"missing"`
	Mean    float64 `json:"mean" yaml:"mean"`
	Std     float64 `json:"std" yaml:"std"`
	Min     float64 `json:"min" yaml:"min"`
	Q1      float64 `json:"q1" yaml:"q1"`
	Median  float64 `json:"median" yaml:"median"`
	Q3      float64 `json:"q3" yaml:"q3"`
	Max     float64 `json:"max" yaml:"max"`
}

// Describe summarizes a numeric column. Std is the sample deviation and is
// left at zero for fewer than two values.
func Describe(t *Table, column string) (Summary, error) {
	c, err := numericColumn(t, column)
	if err != nil {
		return Summary{}, err
	}
	vals := present(c)
	s := Summary{Column: c.Name, Count: len(vals), Missing: len(c.Num) - len(vals)}
	if len(vals) == 0 {
		return s, &InvalidColumnError{Column: column, Reason: "no numeric values"}
	}
	sort.Float64s(vals)
	if len(vals) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	} else {
		s.Mean = vals[0]
	}
	s.Min = vals[0]
	s.Q1 = quantile(vals, 0.25)
	s.Median = quantile(vals, 0.5)
	s.Q3 = quantile(vals, 0.75)
	s.Max = vals[len(vals)-1]
	return s, nil
}

// CategoryCount is one distinct value and how often it occurs.
type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// ValueCounts returns distinct non-missing values by descending count.
func ValueCounts(c *Column) []CategoryCount {
	counts := map[string]int{}
	for i, raw := range c.Raw {
		if raw == "" {
			continue
		}
		key := raw
		if c.IsNumeric() {
			key = formatValue(c.Num[i])
		}
		counts[key]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// HistogramBins holds equal-width bin counts. Edges has len(Counts)+1 entries.
type HistogramBins struct {
	Edges  []float64 `json:"edges" yaml:"edges"`
	Counts []int     `json:"counts" yaml:"counts"`
}

// Histogram bins the non-missing values into equal-width bins spanning
// [lo, hi]. If lo >= hi the range of the data is used.
func Histogram(values []float64, bins int, lo, hi float64) HistogramBins {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return HistogramBins{}
	}
	sort.Float64s(vals)
	if lo >= hi {
		lo, hi = vals[0], vals[len(vals)-1]
	}
	if bins <= 0 {
		bins = 10
	}
	if lo == hi {
		bins = 1
	}
	dividers := make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range dividers {
		dividers[i] = lo + float64(i)*width
	}
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	// values outside [lo, hi] are counted in the edge bins
	clamped := make([]float64, len(vals))
	for i, v := range vals {
		clamped[i] = math.Min(math.Max(v, lo), hi)
	}
	counts := stat.Histogram(nil, dividers, clamped, nil)
	h := HistogramBins{Edges: dividers, Counts: make([]int, len(counts))}
	h.Edges[bins] = hi
	for i, n := range counts {
		h.Counts[i] = int(n)
	}
	return h
}
