package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	quantIn      inputFlags
	quantColumns []string
	quantBins    int
)

// quantOutput is the structured analysis of one quantitative column.
type quantOutput struct {
	Column    string                  `json:"column" yaml:"column"`
	Skipped   string                  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Summary   *analysis.Summary       `json:"summary,omitempty" yaml:"summary,omitempty"`
	ZScore    *columnOutput           `json:"z_score,omitempty" yaml:"z_score,omitempty"`
	IQR       *columnOutput           `json:"iqr,omitempty" yaml:"iqr,omitempty"`
	Histogram *analysis.HistogramBins `json:"histogram,omitempty" yaml:"histogram,omitempty"`
}

var quantCmd = &cobra.Command{
	Use:   "quant <file>",
	Short: "Analyze quantitative columns: summary, Z score and IQR outliers, histogram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := quantIn.outputFormat()
		if err != nil {
			return err
		}
		bins := quantBins
		if bins <= 0 {
			bins = currentConfig().HistogramBins
		}
		t, err := quantIn.load(args[0])
		if err != nil {
			return err
		}
		columns := quantColumns
		if len(columns) == 0 {
			columns = t.ColumnNames()
		}
		var (
			sections []string
			outputs  []quantOutput
		)
		for _, col := range columns {
			var b strings.Builder
			fmt.Fprintf(&b, "ANALYSIS OF: %s\n\n", col)
			out := quantOutput{Column: col}
			c, ok := t.Column(col)
			switch {
			case !ok:
				out.Skipped = "column not found"
				fmt.Fprintf(&b, "Column %q not found.\n", col)
			case !c.IsNumeric():
				out.Skipped = "might be categorical"
				fmt.Fprintf(&b, "Feature %q might be categorical.\nPlease use the \"cate\" command.\n", col)
			default:
				s, err := analysis.Describe(t, col)
				if err != nil {
					out.Skipped = err.Error()
					fmt.Fprintf(&b, "%v\n", err)
					break
				}
				out.Summary = &s
				b.WriteString(analysis.SummaryMarkdown(s))
				b.WriteString("\n")
				for _, m := range []analysis.Method{analysis.MethodZScore, analysis.MethodIQR} {
					res := analysis.AnalyzeOutliers(t, []string{col}, analysis.OutlierOptions{Method: m})[0]
					o := toOutputs([]analysis.ColumnResult{res})[0]
					if m == analysis.MethodZScore {
						out.ZScore = &o
					} else {
						out.IQR = &o
					}
					b.WriteString(analysis.OutliersMarkdown(res, m))
					b.WriteString("\n")
				}
				h := analysis.Histogram(c.Values(), bins, 0, 0)
				out.Histogram = &h
				b.WriteString(analysis.HistogramMarkdown(col, h))
			}
			outputs = append(outputs, out)
			sections = append(sections, b.String())
		}
		if len(outputs) == 0 {
			return fmt.Errorf("no columns to analyze")
		}
		return utils.Render(cmd.OutOrStdout(), format, strings.Join(sections, "\n"+strings.Repeat("_", 60)+"\n\n"), outputs)
	},
}

func init() {
	rootCmd.AddCommand(quantCmd)
	quantIn.register(quantCmd)
	quantCmd.Flags().StringSliceVarP(&quantColumns, "columns", "c", nil, "columns to analyze (default: all columns)")
	quantCmd.Flags().IntVar(&quantBins, "bins", 0, "histogram bins (default from config)")
}
