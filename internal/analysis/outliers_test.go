package analysis

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericTable(name string, vals ...float64) *Table {
	records := make([][]string, len(vals))
	for i, v := range vals {
		records[i] = []string{strconv.FormatFloat(v, 'g', -1, 64)}
	}
	return NewTable("t", []string{name}, records, DefaultOptions())
}

func columnValues(t *testing.T, tbl *Table, name string) []float64 {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	return c.Values()
}

func ptr(v float64) *float64 { return &v }

func setValues(set OutlierSet) []float64 {
	out := make([]float64, len(set.Rows))
	for i, o := range set.Rows {
		out[i] = o.Value
	}
	return out
}

func TestParseMethodAndAction(t *testing.T) {
	for in, want := range map[string]Method{"Z": MethodZScore, "zscore": MethodZScore, " IQR ": MethodIQR, "Custom": MethodCustom} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMethod("mad")
	var ime *InvalidMethodError
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, "method", ime.Kind)

	a, err := ParseAction("remove")
	require.NoError(t, err)
	assert.Equal(t, ActionRemove, a)
	_, err = ParseAction("winsorize")
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, "action", ime.Kind)
}

func TestIQRBoundsFlagFarValue(t *testing.T) {
	tbl := numericTable("x", 1, 2, 3, 4, 5, 100)

	b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodIQR})
	require.NoError(t, err)
	assert.InDelta(t, 2.25, b.Q1, 1e-12)
	assert.InDelta(t, 4.75, b.Q3, 1e-12)
	assert.InDelta(t, 2.5, b.IQR, 1e-12)
	assert.InDelta(t, -1.5, b.Lower, 1e-12)
	assert.InDelta(t, 8.5, b.Upper, 1e-12)

	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)
	require.Len(t, set.Rows, 1)
	assert.Equal(t, 100.0, set.Rows[0].Value)
	assert.Equal(t, 5, set.Rows[0].Row)
	assert.Nil(t, set.Rows[0].Z)
}

func TestZScoreConstantColumn(t *testing.T) {
	tbl := numericTable("x", 10, 10, 10, 10)
	b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodZScore})
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.StdDev)
	assert.Equal(t, 10.0, b.Lower)
	assert.Equal(t, 10.0, b.Upper)

	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)
	assert.Empty(t, set.Rows)
}

func TestZScoreAttachesScore(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = 10
	}
	vals = append(vals, 100)
	tbl := numericTable("x", vals...)

	b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodZScore})
	require.NoError(t, err)
	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)
	require.Len(t, set.Rows, 1)
	require.NotNil(t, set.Rows[0].Z)
	// one point against n-1 equal points scores sqrt(n-1)
	assert.InDelta(t, math.Sqrt(20), *set.Rows[0].Z, 1e-9)
	assert.Equal(t, 20, set.Rows[0].Row)
}

func TestCompressClipsToBounds(t *testing.T) {
	tbl := numericTable("x", 1, 2, 3, 4, 5, 100)
	b := Bounds{Method: MethodIQR, Lower: -1.5, Upper: 8.5}
	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)

	rep, err := ApplyMutation(tbl, "x", b, set, ActionCompress)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 8.5}, columnValues(t, tbl, "x"))
	assert.Equal(t, 1, rep.Affected)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 100}, rep.Before)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 8.5}, rep.After)
	assert.Equal(t, 1, rep.Handled.Len())
}

func TestCompressFollowsBoundsNotSet(t *testing.T) {
	tbl := numericTable("x", -50, 1, 2, 3, 100)
	b := Bounds{Method: MethodCustom, Lower: 0, Upper: 10}
	// an empty set still gets the column clipped
	rep, err := ApplyMutation(tbl, "x", b, OutlierSet{Column: "x"}, ActionCompress)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Affected)
	assert.Equal(t, []float64{0, 1, 2, 3, 10}, columnValues(t, tbl, "x"))
}

func TestRemoveDropsFlaggedRows(t *testing.T) {
	tbl := numericTable("x", 1, 2, 3, 4, 5, 100)
	b := Bounds{Method: MethodIQR, Lower: -1.5, Upper: 8.5}
	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)

	rep, err := ApplyMutation(tbl, "x", b, set, ActionRemove)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, columnValues(t, tbl, "x"))
	assert.NotContains(t, tbl.RowIDs(), 5)
	assert.Equal(t, 1, rep.Affected)
	assert.Zero(t, rep.Skipped)
}

func TestRemoveUsesSetMembership(t *testing.T) {
	tbl := numericTable("x", 1, 2, 3, 4, 5, 100)
	b := Bounds{Method: MethodCustom, Lower: 0, Upper: 3}
	set := OutlierSet{Column: "x", Rows: []Outlier{{Row: 5, Value: 100}, {Row: 42, Value: 7}}}
	rep, err := ApplyMutation(tbl, "x", b, set, ActionRemove)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Affected)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, columnValues(t, tbl, "x"))
}

func TestCustomIntervalFallsBackToMinMax(t *testing.T) {
	tbl := numericTable("x", 1, 2, 3, 4, 5, 100)
	b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodCustom, Custom: Interval{Upper: ptr(50)}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Lower)
	assert.Equal(t, 50.0, b.Upper)
	assert.False(t, b.Substituted)

	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)
	assert.Equal(t, []float64{100}, setValues(set))
}

func TestCustomWithoutIntervalSubstitutesZ(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vals := make([]float64, 200)
	for i := range vals {
		vals[i] = rng.NormFloat64()
	}
	vals[17] = 25
	vals[101] = -30

	ztbl := numericTable("x", vals...)
	ctbl := numericTable("x", vals...)

	zb, err := ComputeBounds(ztbl, "x", OutlierOptions{Method: MethodZScore})
	require.NoError(t, err)
	cb, err := ComputeBounds(ctbl, "x", OutlierOptions{Method: MethodCustom})
	require.NoError(t, err)
	assert.True(t, cb.Substituted)
	assert.Equal(t, MethodZScore, cb.Method)
	cb.Substituted = false
	assert.Equal(t, zb, cb)

	zset, err := DetectOutliers(ztbl, "x", zb)
	require.NoError(t, err)
	cset, err := DetectOutliers(ctbl, "x", cb)
	require.NoError(t, err)
	if diff := cmp.Diff(zset, cset); diff != "" {
		t.Fatalf("outlier sets differ (-z +custom):\n%s", diff)
	}

	_, err = ApplyMutation(ztbl, "x", zb, zset, ActionCompress)
	require.NoError(t, err)
	_, err = ApplyMutation(ctbl, "x", cb, cset, ActionCompress)
	require.NoError(t, err)
	assert.Equal(t, columnValues(t, ztbl, "x"), columnValues(t, ctbl, "x"))
}

func TestStrictCustomRejectsMissingInterval(t *testing.T) {
	tbl := numericTable("x", 1, 2, 3)
	_, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodCustom, StrictCustom: true})
	var mce *MissingCustomIntervalError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "x", mce.Column)
}

func TestInvertedCustomIntervalIsKept(t *testing.T) {
	tbl := numericTable("x", 1, 5, 7, 12)
	b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodCustom, Custom: Interval{Lower: ptr(10), Upper: ptr(4)}})
	require.NoError(t, err)
	assert.True(t, b.Inverted())
	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 5, 7, 12}, setValues(set))
}

func TestInvalidColumns(t *testing.T) {
	tbl := NewTable("t", []string{"name", "v", "blank"}, [][]string{{"a", "1", ""}, {"b", "2", ""}}, DefaultOptions())
	for _, col := range []string{"missing", "name", "blank"} {
		_, err := ComputeBounds(tbl, col, OutlierOptions{Method: MethodIQR})
		var ice *InvalidColumnError
		require.ErrorAs(t, err, &ice, col)
		assert.Equal(t, col, ice.Column)
	}
	before := columnValues(t, tbl, "v")
	_, err := ApplyMutation(tbl, "v", Bounds{Lower: 0, Upper: 1}, OutlierSet{}, Action(9))
	var ime *InvalidMethodError
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, before, columnValues(t, tbl, "v"))
}

func TestMissingValuesAreIgnored(t *testing.T) {
	tbl := NewTable("t", []string{"x"}, [][]string{{"1"}, {""}, {"2"}, {"3"}, {"4"}, {"5"}, {"100"}}, DefaultOptions())
	b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodIQR})
	require.NoError(t, err)
	assert.InDelta(t, -1.5, b.Lower, 1e-12)
	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, set.RowIDs())

	_, err = ApplyMutation(tbl, "x", b, set, ActionCompress)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(columnValues(t, tbl, "x")[1]))
}

func randomColumn(rng *rand.Rand, n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = rng.ExpFloat64()*10 - rng.Float64()*3
	}
	return vals
}

func TestBoundPropertiesOnRandomColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		vals := randomColumn(rng, 5+rng.Intn(200))
		for _, m := range []Method{MethodZScore, MethodIQR} {
			tbl := numericTable("x", vals...)
			b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: m})
			require.NoError(t, err)
			assert.Less(t, b.Lower, b.Upper, "method %s", m)

			set, err := DetectOutliers(tbl, "x", b)
			require.NoError(t, err)
			flagged := map[int]bool{}
			for _, o := range set.Rows {
				flagged[o.Row] = true
			}
			for i, v := range vals {
				assert.Equal(t, v < b.Lower || v > b.Upper, flagged[i], "method %s value %v", m, v)
			}
			for i := 1; i < len(set.Rows); i++ {
				assert.LessOrEqual(t, set.Rows[i-1].Value, set.Rows[i].Value)
			}

			once, err := ApplyMutation(tbl, "x", b, set, ActionCompress)
			require.NoError(t, err)
			twice, err := ApplyMutation(tbl, "x", b, set, ActionCompress)
			require.NoError(t, err)
			assert.Equal(t, once.After, twice.After)
			assert.Zero(t, twice.Affected)

			rtbl := numericTable("x", vals...)
			rset, err := DetectOutliers(rtbl, "x", b)
			require.NoError(t, err)
			rep, err := ApplyMutation(rtbl, "x", b, rset, ActionRemove)
			require.NoError(t, err)
			assert.Equal(t, len(vals)-rset.Len(), rtbl.Len())
			assert.Equal(t, rset.Len(), rep.Affected)
			ids := rtbl.RowIDs()
			for _, id := range rset.RowIDs() {
				assert.NotContains(t, ids, id)
			}
		}
	}
}

func TestHandleOutliersContinuesAfterColumnError(t *testing.T) {
	tbl := NewTable("t", []string{"a", "b"}, [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}, {"4", "w"}, {"5", "v"}, {"100", "u"}}, DefaultOptions())
	results := HandleOutliers(tbl, []string{"nope", "b", "a"}, OutlierOptions{Method: MethodIQR}, ActionRemove)
	require.Len(t, results, 3)
	var ice *InvalidColumnError
	assert.ErrorAs(t, results[0].Err, &ice)
	assert.ErrorAs(t, results[1].Err, &ice)
	require.NoError(t, results[2].Err)
	assert.Equal(t, 5, tbl.Len())
	b, _ := tbl.Column("b")
	assert.Equal(t, []string{"x", "y", "z", "w", "v"}, b.Raw)
}

func TestAnalyzeOutliersDefaultsToNumericColumns(t *testing.T) {
	tbl := NewTable("t", []string{"label", "a", "b"}, [][]string{{"p", "1", "3"}, {"q", "2", "4"}}, DefaultOptions())
	results := AnalyzeOutliers(tbl, nil, OutlierOptions{Method: MethodZScore})
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Column)
	assert.Equal(t, "b", results[1].Column)
	assert.Equal(t, 2, tbl.Len())
}

func TestClassifyColumnKind(t *testing.T) {
	few := numericTable("x", 1, 2, 2, 3, 3, 3)
	c, _ := few.Column("x")
	assert.Equal(t, LikelyCategorical, ClassifyColumnKind(c, 0))

	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = float64(i)
	}
	many := numericTable("x", vals...)
	c, _ = many.Column("x")
	assert.Equal(t, LikelyNumeric, ClassifyColumnKind(c, 20))
	assert.Equal(t, LikelyCategorical, ClassifyColumnKind(c, 30))

	text := NewTable("t", []string{"s"}, [][]string{{"a"}, {"b"}}, DefaultOptions())
	c, _ = text.Column("s")
	assert.Equal(t, LikelyCategorical, ClassifyColumnKind(c, 1))
}

func TestFormatOutlierSetTruncates(t *testing.T) {
	vals := make([]float64, 50)
	for i := 100; i < 112; i++ {
		vals = append(vals, float64(i))
	}
	tbl := numericTable("x", vals...)
	b, err := ComputeBounds(tbl, "x", OutlierOptions{Method: MethodIQR})
	require.NoError(t, err)
	set, err := DetectOutliers(tbl, "x", b)
	require.NoError(t, err)
	require.Equal(t, 12, set.Len())

	out := FormatOutlierSet(set)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "Total outliers: 12", lines[0])
	assert.Len(t, lines, 1+1+5+2+5)
	assert.Equal(t, []string{".", "."}, lines[7:9])
	var shown []string
	for _, l := range lines[2:] {
		if f := strings.Fields(l); len(f) == 2 {
			shown = append(shown, f[1])
		}
	}
	assert.Equal(t, []string{"100", "101", "102", "103", "104", "107", "108", "109", "110", "111"}, shown)
}

func TestFormatOutlierSetShowsTenInFull(t *testing.T) {
	set := OutlierSet{Column: "x", Method: MethodIQR}
	for i := 0; i < 10; i++ {
		set.Rows = append(set.Rows, Outlier{Row: i, Value: float64(i)})
	}
	out := FormatOutlierSet(set)
	assert.NotContains(t, out, ".\n.\n")
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 12)

	assert.Equal(t, "Total outliers: 0\n", FormatOutlierSet(OutlierSet{}))
}

func TestOutliersMarkdownMentionsSubstitution(t *testing.T) {
	tbl := numericTable("x", 1, 2, 3, 4)
	res := AnalyzeOutliers(tbl, []string{"x"}, OutlierOptions{Method: MethodCustom})
	require.Len(t, res, 1)
	md := OutliersMarkdown(res[0], MethodCustom)
	assert.Contains(t, md, "[OUTLIERS in x via Z score]")
	assert.Contains(t, md, "custom intervals were not provided")
	assert.Contains(t, md, "Total outliers: 0")
}
