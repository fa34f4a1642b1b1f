package analysis

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
)

// CorrMethod selects the correlation coefficient.
type CorrMethod int

const (
	CorrPearson CorrMethod = iota
	CorrSpearman
)

// ParseCorrMethod maps a user token to a CorrMethod.
func ParseCorrMethod(s string) (CorrMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pearson":
		return CorrPearson, nil
	case "spearman":
		return CorrSpearman, nil
	}
	return 0, &InvalidMethodError{Kind: "correlation", Value: s}
}

func (m CorrMethod) String() string {
	if m == CorrSpearman {
		return "spearman"
	}
	return "pearson"
}

// MarshalText encodes the method name.
func (m CorrMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// CorrMatrix holds a symmetric correlation matrix across numeric columns.
// Pairs without enough overlapping rows are zero.
type CorrMatrix struct {
	Method  CorrMethod  `json:"method" yaml:"method"`
	Columns []string    `json:"columns" yaml:"columns"`
	Values  [][]float64 `json:"values" yaml:"values"` // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// TopPairs lists off-diagonal pairs by descending |r|, at most limit.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Correlation computes the matrix over all numeric columns using the rows
// where both columns of a pair are present.
func Correlation(t *Table, method CorrMethod) *CorrMatrix {
	names := t.NumericColumns()
	n := len(names)
	m := &CorrMatrix{Method: method, Columns: names, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	cols := make([]*Column, n)
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			x, y := completePairs(cols[i].Num, cols[j].Num)
			r := pairCorr(x, y, method)
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pairCorr(x, y []float64, method CorrMethod) float64 {
	if len(x) < 2 {
		return 0
	}
	if method == CorrSpearman {
		x, y = ranks(x), ranks(y)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func completePairs(a, b []float64) (x, y []float64) {
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}

// ranks assigns 1-based ranks, averaging ties.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })
	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// MIOptions configures mutual information scoring.
type MIOptions struct {
	// Neighbors is k for the nearest-neighbour estimators; default 3.
	Neighbors int
	// MaxRows caps the rows used; 0 means all.
	MaxRows int
	// Limit keeps the top scores; 0 keeps all.
	Limit int
}

// MIScore is the mutual information between one feature and the target.
type MIScore struct {
	Feature  string  `json:"feature" yaml:"feature"`
	Score    float64 `json:"score" yaml:"score"`
	Discrete bool    `json:"discrete" yaml:"discrete"`
}

// MutualInfo scores every other column against a numeric target.
// Text columns are label-encoded and, with integral numeric columns, treated
// as discrete.
func MutualInfo(t *Table, target string, opt MIOptions) ([]MIScore, error) {
	tc, err := numericColumn(t, target)
	if err != nil {
		return nil, err
	}
	k := opt.Neighbors
	if k <= 0 {
		k = 3
	}
	var out []MIScore
	for _, c := range t.Columns() {
		if c == tc {
			continue
		}
		x, discrete := encodeFeature(c)
		xs, ys := completePairs(x, tc.Num)
		if opt.MaxRows > 0 && len(xs) > opt.MaxRows {
			xs, ys = xs[:opt.MaxRows], ys[:opt.MaxRows]
		}
		s := MIScore{Feature: c.Name, Discrete: discrete}
		if len(xs) > k {
			y := scaled(ys)
			if discrete {
				s.Score = miDiscreteContinuous(y, xs, k)
			} else {
				s.Score = miContinuous(scaled(xs), y, k)
			}
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if opt.Limit > 0 && len(out) > opt.Limit {
		out = out[:opt.Limit]
	}
	return out, nil
}

// encodeFeature returns numeric codes for a column and whether it is discrete.
func encodeFeature(c *Column) ([]float64, bool) {
	if c.IsNumeric() {
		return c.Num, c.Integral
	}
	codes := map[string]float64{}
	out := make([]float64, len(c.Raw))
	for i, v := range c.Raw {
		if v == "" {
			out[i] = math.NaN()
			continue
		}
		code, ok := codes[v]
		if !ok {
			code = float64(len(codes))
			codes[v] = code
		}
		out[i] = code
	}
	return out, true
}

// scaled divides by the population standard deviation.
func scaled(v []float64) []float64 {
	_, sd := stat.PopMeanStdDev(v, nil)
	out := make([]float64, len(v))
	for i, x := range v {
		if sd > 0 {
			out[i] = x / sd
		} else {
			out[i] = x
		}
	}
	return out
}

// kthDistance returns the distance to the k-th nearest other point under d.
func kthDistance(n, i, k int, d func(a, b int) float64) float64 {
	best := make([]float64, 0, k+1)
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		dist := d(i, j)
		if len(best) == k && dist >= best[k-1] {
			continue
		}
		pos := sort.SearchFloat64s(best, dist)
		best = append(best, 0)
		copy(best[pos+1:], best[pos:])
		best[pos] = dist
		if len(best) > k {
			best = best[:k]
		}
	}
	return best[len(best)-1]
}

// miContinuous is the Kraskov estimator with Chebyshev distances.
func miContinuous(x, y []float64, k int) float64 {
	n := len(x)
	cheb := func(a, b int) float64 { return math.Max(math.Abs(x[a]-x[b]), math.Abs(y[a]-y[b])) }
	var sum float64
	for i := 0; i < n; i++ {
		r := math.Nextafter(kthDistance(n, i, k, cheb), 0)
		nx, ny := 0, 0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if math.Abs(x[i]-x[j]) <= r {
				nx++
			}
			if math.Abs(y[i]-y[j]) <= r {
				ny++
			}
		}
		sum += mathext.Digamma(float64(nx+1)) + mathext.Digamma(float64(ny+1))
	}
	mi := mathext.Digamma(float64(n)) + mathext.Digamma(float64(k)) - sum/float64(n)
	return math.Max(0, mi)
}

// miDiscreteContinuous is the Ross estimator for a discrete feature d and a
// continuous target c. Labels seen only once are ignored.
func miDiscreteContinuous(c, d []float64, k int) float64 {
	byLabel := map[float64][]int{}
	for i, v := range d {
		byLabel[v] = append(byLabel[v], i)
	}
	n := len(c)
	radius := make([]float64, n)
	kAll := make([]float64, n)
	labelCount := make([]float64, n)
	for _, idx := range byLabel {
		cnt := len(idx)
		for _, i := range idx {
			labelCount[i] = float64(cnt)
		}
		if cnt < 2 {
			continue
		}
		kk := k
		if cnt-1 < kk {
			kk = cnt - 1
		}
		dist := func(a, b int) float64 { return math.Abs(c[idx[a]] - c[idx[b]]) }
		for a, i := range idx {
			radius[i] = math.Nextafter(kthDistance(cnt, a, kk, dist), 0)
			kAll[i] = float64(kk)
		}
	}
	var used []int
	for i := 0; i < n; i++ {
		if labelCount[i] > 1 {
			used = append(used, i)
		}
	}
	if len(used) == 0 {
		return 0
	}
	var sumK, sumLabel, sumM float64
	for _, i := range used {
		m := 0
		for _, j := range used {
			if math.Abs(c[i]-c[j]) <= radius[i] {
				m++
			}
		}
		sumK += mathext.Digamma(kAll[i])
		sumLabel += mathext.Digamma(labelCount[i])
		sumM += mathext.Digamma(float64(m))
	}
	nu := float64(len(used))
	mi := mathext.Digamma(nu) + (sumK-sumLabel-sumM)/nu
	return math.Max(0, mi)
}
