package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/quickeda-cli/internal/analysis"
	"github.com/KaramelBytes/quickeda-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	cateIn        inputFlags
	cateColumns   []string
	cateForce     bool
	cateThreshold int
)

// cateOutput is the frequency table of one categorical column.
type cateOutput struct {
	Column  string                   `json:"column" yaml:"column"`
	Skipped string                   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Forced  bool                     `json:"forced,omitempty" yaml:"forced,omitempty"`
	Counts  []analysis.CategoryCount `json:"counts,omitempty" yaml:"counts,omitempty"`
}

var cateCmd = &cobra.Command{
	Use:   "cate <file>",
	Short: "Analyze categorical columns: distinct values and their counts",
	Long: `Print the distinct values of each column with their counts.

Columns with more distinct values than the cardinality threshold are
probably numerical and are skipped unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cateIn.outputFormat()
		if err != nil {
			return err
		}
		threshold := cateThreshold
		if threshold <= 0 {
			threshold = currentConfig().CardinalityThreshold
		}
		t, err := cateIn.load(args[0])
		if err != nil {
			return err
		}
		columns := cateColumns
		if len(columns) == 0 {
			columns = t.ColumnNames()
		}
		var (
			sections []string
			outputs  []cateOutput
		)
		for _, col := range columns {
			var b strings.Builder
			fmt.Fprintf(&b, "ANALYSIS OF: %s\n\n", col)
			out := cateOutput{Column: col}
			c, ok := t.Column(col)
			if !ok {
				out.Skipped = "column not found"
				fmt.Fprintf(&b, "Column %q not found.\n", col)
				outputs = append(outputs, out)
				sections = append(sections, b.String())
				continue
			}
			if analysis.ClassifyColumnKind(c, threshold) == analysis.LikelyNumeric {
				if !cateForce {
					out.Skipped = "might be numerical"
					fmt.Fprintf(&b, "The feature %q might be numerical. Please try the \"quant\" command.\nIn case you want to proceed anyway, pass --force.\n", col)
					outputs = append(outputs, out)
					sections = append(sections, b.String())
					continue
				}
				out.Forced = true
				fmt.Fprintf(&b, "The feature %q might be numerical. Proceeding anyway.\n", col)
			}
			out.Counts = analysis.ValueCounts(c)
			b.WriteString(analysis.ValueCountsMarkdown(col, out.Counts))
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
	rootCmd.AddCommand(cateCmd)
	cateIn.register(cateCmd)
	cateCmd.Flags().StringSliceVarP(&cateColumns, "columns", "c", nil, "columns to analyze (default: all columns)")
	cateCmd.Flags().BoolVar(&cateForce, "force", false, "analyze columns that look numerical anyway")
	cateCmd.Flags().IntVar(&cateThreshold, "threshold", 0, "distinct-value count above which a column counts as numerical (default from config)")
}
