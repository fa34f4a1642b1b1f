package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so invocations do not leak
// state into each other.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// setupHome isolates config and journal under a temp HOME and writes the
// sample dataset there.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	data := "name,x,group\na,1,g1\nb,2,g1\nc,3,g2\nd,4,g2\ne,5,g1\nf,100,g3\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "data.csv"), []byte(data), 0o644))
	return home
}

func TestCLI_OutliersText(t *testing.T) {
	home := setupHome(t)
	out, _, err := runCmd(t, "outliers", filepath.Join(home, "data.csv"), "-m", "iqr", "-c", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "[OUTLIERS in x via IQR]")
	assert.Contains(t, out, "lower limit: -1.5")
	assert.Contains(t, out, "upper limit: 8.5")
	assert.Contains(t, out, "Total outliers: 1")
}

func TestCLI_OutliersJSON(t *testing.T) {
	home := setupHome(t)
	out, _, err := runCmd(t, "outliers", filepath.Join(home, "data.csv"), "--method", "iqr", "--format", "json")
	require.NoError(t, err)

	var got []struct {
		Column string `json:"column"`
		Bounds struct {
			Method string  `json:"method"`
			Lower  float64 `json:"lower"`
			Upper  float64 `json:"upper"`
		} `json:"bounds"`
		Outliers struct {
			Rows []struct {
				Row   int     `json:"row"`
				Value float64 `json:"value"`
			} `json:"rows"`
		} `json:"outliers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1, "only x is numeric")
	assert.Equal(t, "iqr", got[0].Bounds.Method)
	assert.Equal(t, -1.5, got[0].Bounds.Lower)
	require.Len(t, got[0].Outliers.Rows, 1)
	assert.Equal(t, 100.0, got[0].Outliers.Rows[0].Value)
}

func TestCLI_OutliersCustomFallsBackToZ(t *testing.T) {
	home := setupHome(t)
	out, _, err := runCmd(t, "outliers", filepath.Join(home, "data.csv"), "-m", "custom")
	require.NoError(t, err)
	assert.Contains(t, out, "Using the Z score method as custom intervals were not provided")

	_, _, err = runCmd(t, "outliers", filepath.Join(home, "data.csv"), "-m", "custom", "--strict-custom")
	var missing *analysis.MissingCustomIntervalError
	assert.True(t, errors.As(err, &missing), "got %v", err)
}

func TestCLI_InvalidMethod(t *testing.T) {
	home := setupHome(t)
	_, _, err := runCmd(t, "outliers", filepath.Join(home, "data.csv"), "-m", "mad")
	var invalid *analysis.InvalidMethodError
	require.True(t, errors.As(err, &invalid), "got %v", err)

	_, _, err = runCmd(t, "handle", filepath.Join(home, "data.csv"), "-a", "shrink")
	require.True(t, errors.As(err, &invalid), "got %v", err)
}

func TestCLI_OutliersBadColumnWarns(t *testing.T) {
	home := setupHome(t)
	out, stderr, err := runCmd(t, "outliers", filepath.Join(home, "data.csv"), "-m", "iqr", "-c", "name,x")
	require.NoError(t, err)
	assert.Contains(t, stderr, `column "name"`)
	assert.Contains(t, out, "[OUTLIERS in x via IQR]")

	_, _, err = runCmd(t, "outliers", filepath.Join(home, "data.csv"), "-c", "missing")
	var invalid *analysis.InvalidColumnError
	assert.True(t, errors.As(err, &invalid), "got %v", err)
}

func TestCLI_HandleCompressWritesOutputAndJournal(t *testing.T) {
	home := setupHome(t)
	outPath := filepath.Join(home, "out", "clean.csv")
	out, stderr, err := runCmd(t, "handle", filepath.Join(home, "data.csv"), "-m", "iqr", "-a", "compress", "-c", "x", "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[HANDLED: x via IQR]")
	assert.Contains(t, out, "Cells clipped: 1")
	assert.Contains(t, stderr, "✓ Wrote handled table")

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "name,x,group\na,1,g1\nb,2,g1\nc,3,g2\nd,4,g2\ne,5,g1\nf,8.5,g3\n", string(b))

	hist, _, err := runCmd(t, "history")
	require.NoError(t, err)
	assert.Contains(t, hist, "data.x")
	assert.Contains(t, hist, "compress via iqr: 1 handled, 1 affected")
	assert.Contains(t, hist, "-> "+outPath)
}

func TestCLI_HandleRemove(t *testing.T) {
	home := setupHome(t)
	outPath := filepath.Join(home, "clean.tsv")
	_, _, err := runCmd(t, "handle", filepath.Join(home, "data.csv"), "-m", "iqr", "-a", "remove", "-o", outPath, "--no-journal")
	require.NoError(t, err)

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "name\tx\tgroup", lines[0])
	assert.NotContains(t, string(b), "100")

	hist, _, err := runCmd(t, "history", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", hist)
}

func TestCLI_HandleOutputRefusesPartialTable(t *testing.T) {
	home := setupHome(t)
	outPath := filepath.Join(home, "partial.csv")
	_, _, err := runCmd(t, "handle", filepath.Join(home, "data.csv"), "-m", "iqr", "--max-rows", "3", "-o", outPath, "--no-journal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would drop 3 rows")
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "no output should be written")
}

func TestCLI_HandleOutputIgnoresConfiguredRowCap(t *testing.T) {
	home := setupHome(t)
	t.Setenv("QUICKEDA_MAX_ROWS", "3")
	outPath := filepath.Join(home, "full.csv")
	_, _, err := runCmd(t, "handle", filepath.Join(home, "data.csv"), "-m", "iqr", "-a", "remove", "-o", outPath, "--no-journal")
	require.NoError(t, err)

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 6, "header plus five rows: only the flagged row is removed")
	assert.NotContains(t, string(b), "100")
}

func TestCLI_SummaryAndQuant(t *testing.T) {
	home := setupHome(t)
	out, _, err := runCmd(t, "summary", filepath.Join(home, "data.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "5 point summary for: x")
	assert.Contains(t, out, "- 25%: 2.25")

	out, _, err = runCmd(t, "quant", filepath.Join(home, "data.csv"), "--bins", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `Feature "name" might be categorical.`)
	assert.Contains(t, out, "[OUTLIERS in x via Z score]")
	assert.Contains(t, out, "[OUTLIERS in x via IQR]")
	assert.Contains(t, out, "[HISTOGRAM: x]")
}

func TestCLI_CateSkipsLikelyNumeric(t *testing.T) {
	home := setupHome(t)
	out, _, err := runCmd(t, "cate", filepath.Join(home, "data.csv"), "-c", "group,x", "--threshold", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "No. of UNIQUE values: 3")
	assert.Contains(t, out, "- g1: 3 (50.0%)")
	assert.Contains(t, out, `The feature "x" might be numerical.`)

	out, _, err = runCmd(t, "cate", filepath.Join(home, "data.csv"), "-c", "x", "--threshold", "3", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Proceeding anyway.")
	assert.Contains(t, out, "No. of UNIQUE values: 6")
}

func TestCLI_CorrelationAndMutualInfo(t *testing.T) {
	home := setupHome(t)
	data := "a,b,c\n1,2,9\n2,4,7\n3,6,8\n4,8,1\n5,10,3\n"
	path := filepath.Join(home, "corr.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	out, _, err := runCmd(t, "correlation", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[CORRELATIONS: pearson]")
	assert.Contains(t, out, "[CORRELATIONS: spearman]")
	assert.Contains(t, out, "a ~ b: r=1.000")

	_, _, err = runCmd(t, "mutual-info", path)
	require.Error(t, err, "--target is required")

	out, _, err = runCmd(t, "mutual-info", path, "-t", "a", "-l", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[MUTUAL INFORMATION vs a]")
	assert.Equal(t, 1, strings.Count(out, "\n- "))
}

func TestCLI_ConfigSetShow(t *testing.T) {
	setupHome(t)
	_, _, err := runCmd(t, "config", "set", "default_method", "IQR")
	require.NoError(t, err)
	_, _, err = runCmd(t, "config", "set", "histogram_bins", "0")
	require.Error(t, err)
	_, _, err = runCmd(t, "config", "set", "nope", "1")
	require.Error(t, err)

	out, _, err := runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_method: iqr")
	assert.Contains(t, out, "histogram_bins: 10")
}
