package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// inputFlags are the dataset loading flags shared by every analysis command.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
	format     string
}

func (f *inputFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (by extension if omitted)")
	c.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	c.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to load (0 = config max_rows)")
	c.Flags().StringVar(&f.format, "format", "text", "output format: text|json|yaml")
}

func (f *inputFlags) options() (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	if c := currentConfig(); c.MaxRows > 0 {
		opt.MaxRows = c.MaxRows
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

func (f *inputFlags) outputFormat() (utils.Format, error) {
	return utils.ParseFormat(f.format)
}

// load reads the dataset at path with the parsed flags.
func (f *inputFlags) load(path string) (*analysis.Table, error) {
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	return f.loadWith(path, opt)
}

// loadComplete reads the whole dataset: the configured row cap is ignored
// and an explicit --max-rows that would drop rows is an error. Used before
// writing a table back to disk.
func (f *inputFlags) loadComplete(path string) (*analysis.Table, error) {
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	opt.MaxRows = f.maxRows
	t, err := f.loadWith(path, opt)
	if err != nil {
		return nil, err
	}
	if t.Skipped > 0 {
		return nil, fmt.Errorf("--max-rows %d would drop %d rows from the written table; remove the limit to write the full dataset", f.maxRows, t.Skipped)
	}
	return t, nil
}

func (f *inputFlags) loadWith(path string, opt analysis.Options) (*analysis.Table, error) {
	t, err := analysis.Load(path, opt, f.sheetName, f.sheetIndex)
	if err != nil {
		return nil, err
	}
	entry := log.WithFields(logrus.Fields{"file": path, "rows": t.Len(), "columns": len(t.Columns())})
	if t.Skipped > 0 {
		entry.WithField("skipped", t.Skipped).Warn("row limit reached, remaining rows ignored")
	}
	entry.Debug("loaded table")
	return t, nil
}

// parseMethod resolves --method against the configured default.
func parseMethod(flag string) (analysis.Method, error) {
	if strings.TrimSpace(flag) == "" {
		flag = currentConfig().DefaultMethod
	}
	return analysis.ParseMethod(flag)
}

// customInterval builds an interval from --lower/--upper when they were set.
func customInterval(c *cobra.Command, lower, upper float64) analysis.Interval {
	var iv analysis.Interval
	if c.Flags().Changed("lower") {
		l := lower
		iv.Lower = &l
	}
	if c.Flags().Changed("upper") {
		u := upper
		iv.Upper = &u
	}
	return iv
}

// columnOutput is the structured form of one ColumnResult.
type columnOutput struct {
	Column   string                   `json:"column" yaml:"column"`
	Bounds   *analysis.Bounds         `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Outliers *analysis.OutlierSet     `json:"outliers,omitempty" yaml:"outliers,omitempty"`
	Report   *analysis.MutationReport `json:"report,omitempty" yaml:"report,omitempty"`
	Error    string                   `json:"error,omitempty" yaml:"error,omitempty"`
}

func toOutputs(results []analysis.ColumnResult) []columnOutput {
	out := make([]columnOutput, 0, len(results))
	for _, r := range results {
		o := columnOutput{Column: r.Column}
		if r.Err != nil {
			o.Error = r.Err.Error()
		} else {
			b, set := r.Bounds, r.Outliers
			o.Bounds, o.Outliers = &b, &set
			o.Report = r.Report
		}
		out = append(out, o)
	}
	return out
}

// warnFailures prints a warning per failed column and returns an error
// only when every column failed.
func warnFailures(c *cobra.Command, results []analysis.ColumnResult) error {
	failed := 0
	var last error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		failed++
		last = r.Err
		fmt.Fprintf(c.ErrOrStderr(), "⚠ Warning: column %q: %v\n", r.Column, r.Err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no numeric columns to analyze")
	}
	if failed == len(results) {
		if failed == 1 {
			return last
		}
		return fmt.Errorf("all %d columns failed", failed)
	}
	return nil
}
