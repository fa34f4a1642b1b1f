package analysis

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// zThreshold is the |z| above which a value is an outlier.
	zThreshold = 3.0
	// tukeyK is the fence multiplier applied to the interquartile range.
	tukeyK = 1.5
	// DefaultCardinalityThreshold separates likely categorical columns.
	DefaultCardinalityThreshold = 20
)

// Method selects how outlier bounds are derived.
type Method int

const (
	MethodZScore Method = iota
	MethodIQR
	MethodCustom
)

// ParseMethod maps a user token to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "z", "zscore", "z-score", "z_score":
		return MethodZScore, nil
	case "iqr":
		return MethodIQR, nil
	case "custom":
		return MethodCustom, nil
	}
	return 0, &InvalidMethodError{Kind: "method", Value: s}
}

func (m Method) String() string {
	switch m {
	case MethodZScore:
		return "Z score"
	case MethodIQR:
		return "IQR"
	case MethodCustom:
		return "custom interval"
	}
	return "unknown"
}

// MarshalText encodes the method as its CLI token.
func (m Method) MarshalText() ([]byte, error) {
	switch m {
	case MethodZScore:
		return []byte("z"), nil
	case MethodIQR:
		return []byte("iqr"), nil
	case MethodCustom:
		return []byte("custom"), nil
	}
	return nil, &InvalidMethodError{Kind: "method", Value: "unknown"}
}

// Action selects how outliers are handled.
type Action int

const (
	ActionCompress Action = iota
	ActionRemove
)

// ParseAction maps a user token to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compress", "clip":
		return ActionCompress, nil
	case "remove", "drop":
		return ActionRemove, nil
	}
	return 0, &InvalidMethodError{Kind: "action", Value: s}
}

func (a Action) String() string {
	switch a {
	case ActionCompress:
		return "compress"
	case ActionRemove:
		return "remove"
	}
	return "unknown"
}

// MarshalText encodes the action as its CLI token.
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Interval is a caller-supplied pair of limits. A nil side is unbounded and
// falls back to the observed minimum or maximum.
type Interval struct {
	Lower *float64
	Upper *float64
}

// Empty reports whether neither side is set.
func (iv Interval) Empty() bool { return iv.Lower == nil && iv.Upper == nil }

// OutlierOptions configures bound computation.
type OutlierOptions struct {
	Method Method
	Custom Interval
	// StrictCustom rejects a custom method without an interval instead of
	// falling back to the Z-score method.
	StrictCustom bool
}

// Bounds are the fences used to classify values.
type Bounds struct {
	Method Method  `json:"method" yaml:"method"`
	Lower  float64 `json:"lower" yaml:"lower"`
	Upper  float64 `json:"upper" yaml:"upper"`
	// Z-score statistics
	Mean   float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev float64 `json:"std,omitempty" yaml:"std,omitempty"`
	// IQR statistics
	Q1  float64 `json:"q1,omitempty" yaml:"q1,omitempty"`
	Q3  float64 `json:"q3,omitempty" yaml:"q3,omitempty"`
	IQR float64 `json:"iqr,omitempty" yaml:"iqr,omitempty"`
	// Substituted is set when a custom method without interval fell back to Z.
	Substituted bool `json:"substituted,omitempty" yaml:"substituted,omitempty"`
}

// Inverted reports a custom interval whose lower limit exceeds the upper one.
// Such bounds are used as given; every value outside (upper, lower) is then
// flagged.
func (b Bounds) Inverted() bool { return b.Lower > b.Upper }

// Outlier is one flagged row.
type Outlier struct {
	Row   int      `json:"row" yaml:"row"`
	Value float64  `json:"value" yaml:"value"`
	Z     *float64 `json:"z_score,omitempty" yaml:"z_score,omitempty"`
}

// OutlierSet lists flagged rows of one column, sorted by value ascending.
type OutlierSet struct {
	Column string    `json:"column" yaml:"column"`
	Method Method    `json:"method" yaml:"method"`
	Rows   []Outlier `json:"rows" yaml:"rows"`
}

// Len returns the number of outliers.
func (s OutlierSet) Len() int { return len(s.Rows) }

// RowIDs returns the identities of the flagged rows.
func (s OutlierSet) RowIDs() []int {
	ids := make([]int, len(s.Rows))
	for i, o := range s.Rows {
		ids[i] = o.Row
	}
	return ids
}

// MutationReport describes what ApplyMutation changed.
type MutationReport struct {
	Column   string     `json:"column" yaml:"column"`
	Action   Action     `json:"action" yaml:"action"`
	Bounds   Bounds     `json:"bounds" yaml:"bounds"`
	Handled  OutlierSet `json:"handled" yaml:"handled"`
	Affected int        `json:"affected" yaml:"affected"`
	Skipped  int        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Before and After are column snapshots around the mutation; missing
	// cells are NaN.
	Before []float64 `json:"-" yaml:"-"`
	After  []float64 `json:"-" yaml:"-"`
}

// numericColumn resolves a column usable for statistics.
func numericColumn(t *Table, column string) (*Column, error) {
	c, ok := t.Column(column)
	if !ok {
		return nil, &InvalidColumnError{Column: column, Reason: "not found"}
	}
	if !c.IsNumeric() {
		return nil, &InvalidColumnError{Column: column, Reason: "not numeric"}
	}
	return c, nil
}

// present returns the non-missing values of c.
func present(c *Column) []float64 {
	out := make([]float64, 0, len(c.Num))
	for _, v := range c.Num {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// ComputeBounds derives outlier fences for a column.
func ComputeBounds(t *Table, column string, opt OutlierOptions) (Bounds, error) {
	c, err := numericColumn(t, column)
	if err != nil {
		return Bounds{}, err
	}
	method := opt.Method
	substituted := false
	if method == MethodCustom && opt.Custom.Empty() {
		if opt.StrictCustom {
			return Bounds{}, &MissingCustomIntervalError{Column: column}
		}
		method = MethodZScore
		substituted = true
	}
	vals := present(c)
	if len(vals) == 0 && !(method == MethodCustom && opt.Custom.Lower != nil && opt.Custom.Upper != nil) {
		return Bounds{}, &InvalidColumnError{Column: column, Reason: "no numeric values"}
	}

	b := Bounds{Method: method, Substituted: substituted}
	switch method {
	case MethodZScore:
		b.Mean, b.StdDev = stat.PopMeanStdDev(vals, nil)
		b.Lower = b.Mean - zThreshold*b.StdDev
		b.Upper = b.Mean + zThreshold*b.StdDev
	case MethodIQR:
		sort.Float64s(vals)
		b.Q1 = quantile(vals, 0.25)
		b.Q3 = quantile(vals, 0.75)
		b.IQR = b.Q3 - b.Q1
		b.Lower = b.Q1 - tukeyK*b.IQR
		b.Upper = b.Q3 + tukeyK*b.IQR
	case MethodCustom:
		if opt.Custom.Lower != nil {
			b.Lower = *opt.Custom.Lower
		} else {
			b.Lower = floats.Min(vals)
		}
		if opt.Custom.Upper != nil {
			b.Upper = *opt.Custom.Upper
		} else {
			b.Upper = floats.Max(vals)
		}
	default:
		return Bounds{}, &InvalidMethodError{Kind: "method", Value: method.String()}
	}
	return b, nil
}

// DetectOutliers flags the values of a column that fall outside b.
// Under the Z-score method each value is scored as (v-mean)/std and flagged
// when |z| > 3; a constant column yields NaN scores and no outliers.
func DetectOutliers(t *Table, column string, b Bounds) (OutlierSet, error) {
	c, err := numericColumn(t, column)
	if err != nil {
		return OutlierSet{}, err
	}
	set := OutlierSet{Column: c.Name, Method: b.Method}
	for pos, v := range c.Num {
		if math.IsNaN(v) {
			continue
		}
		switch b.Method {
		case MethodZScore:
			z := (v - b.Mean) / b.StdDev
			if math.Abs(z) > zThreshold {
				set.Rows = append(set.Rows, Outlier{Row: t.rowIDs[pos], Value: v, Z: &z})
			}
		default:
			if v < b.Lower || v > b.Upper {
				set.Rows = append(set.Rows, Outlier{Row: t.rowIDs[pos], Value: v})
			}
		}
	}
	sort.SliceStable(set.Rows, func(i, j int) bool {
		if set.Rows[i].Value == set.Rows[j].Value {
			return set.Rows[i].Row < set.Rows[j].Row
		}
		return set.Rows[i].Value < set.Rows[j].Value
	})
	return set, nil
}

// ApplyMutation handles outliers in place.
//
// Compress clips every value of the column to [b.Lower, b.Upper], whether or
// not it is in set. Remove deletes exactly the rows in set; identities no
// longer present are skipped.
func ApplyMutation(t *Table, column string, b Bounds, set OutlierSet, action Action) (*MutationReport, error) {
	c, err := numericColumn(t, column)
	if err != nil {
		return nil, err
	}
	if action != ActionCompress && action != ActionRemove {
		return nil, &InvalidMethodError{Kind: "action", Value: action.String()}
	}
	rep := &MutationReport{Column: c.Name, Action: action, Bounds: b, Handled: set, Before: c.Values()}
	switch action {
	case ActionCompress:
		for pos, v := range c.Num {
			switch {
			case v > b.Upper:
				t.SetValue(c, pos, b.Upper)
				rep.Affected++
			case v < b.Lower:
				t.SetValue(c, pos, b.Lower)
				rep.Affected++
			}
		}
	case ActionRemove:
		rep.Affected, rep.Skipped = t.RemoveRows(set.RowIDs())
	}
	rep.After = c.Values()
	return rep, nil
}

// ColumnKind is the advisory classification of a column.
type ColumnKind int

const (
	LikelyNumeric ColumnKind = iota
	LikelyCategorical
)

func (k ColumnKind) String() string {
	if k == LikelyCategorical {
		return "categorical"
	}
	return "numeric"
}

// ClassifyColumnKind guesses whether a column is categorical: text storage or
// at most threshold distinct values. threshold <= 0 uses the default of 20.
func ClassifyColumnKind(c *Column, threshold int) ColumnKind {
	if threshold <= 0 {
		threshold = DefaultCardinalityThreshold
	}
	if !c.IsNumeric() {
		return LikelyCategorical
	}
	if distinctCount(c) <= threshold {
		return LikelyCategorical
	}
	return LikelyNumeric
}

func distinctCount(c *Column) int {
	seen := map[string]struct{}{}
	if c.IsNumeric() {
		for _, v := range c.Num {
			if !math.IsNaN(v) {
				seen[formatValue(v)] = struct{}{}
			}
		}
		return len(seen)
	}
	for _, v := range c.Raw {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// ColumnResult is the outcome of one column in a multi-column run.
type ColumnResult struct {
	Column   string
	Bounds   Bounds
	Outliers OutlierSet
	Report   *MutationReport
	Err      error
}

// resolveColumns expands an empty selection to every numeric column.
func resolveColumns(t *Table, columns []string) []string {
	if len(columns) == 0 {
		return t.NumericColumns()
	}
	return columns
}

// AnalyzeOutliers computes bounds and outliers without touching the table.
// A failing column is reported in its result and does not stop the others.
func AnalyzeOutliers(t *Table, columns []string, opt OutlierOptions) []ColumnResult {
	var out []ColumnResult
	for _, col := range resolveColumns(t, columns) {
		res := ColumnResult{Column: col}
		res.Bounds, res.Err = ComputeBounds(t, col, opt)
		if res.Err == nil {
			res.Outliers, res.Err = DetectOutliers(t, col, res.Bounds)
		}
		out = append(out, res)
	}
	return out
}

// HandleOutliers applies action to each column in turn. Later columns see
// the table as left by earlier ones.
func HandleOutliers(t *Table, columns []string, opt OutlierOptions, action Action) []ColumnResult {
	var out []ColumnResult
	for _, col := range resolveColumns(t, columns) {
		res := ColumnResult{Column: col}
		res.Bounds, res.Err = ComputeBounds(t, col, opt)
		if res.Err == nil {
			res.Outliers, res.Err = DetectOutliers(t, col, res.Bounds)
		}
		if res.Err == nil {
			res.Report, res.Err = ApplyMutation(t, col, res.Bounds, res.Outliers, action)
		}
		out = append(out, res)
	}
	return out
}

// quantile interpolates linearly between closest ranks of sorted data.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
